package xpath

import (
	"fmt"

	"github.com/ndisidore/grove/pkg/tree"
)

// Flatten visits every node in the document and returns a single-level map
// from synthesized path strings to scalar leaf values. Sequence members are
// addressed as parent[INDEX]; preserved attributes appear under path/@key.
// When includeRefs is set, every structural branch additionally contributes
// an entry mapping its own path to the *tree.Node at that branch.
func Flatten(doc *tree.Document, includeRefs bool) map[string]any {
	out := make(map[string]any)
	if doc.Root == nil {
		return out
	}
	flattenNode(out, "/"+doc.RootName, doc.Root, includeRefs)
	return out
}

func flattenNode(out map[string]any, path string, n *tree.Node, includeRefs bool) {
	switch n.Kind() {
	case tree.KindText:
		out[path] = n.Text()

	case tree.KindSequence:
		if includeRefs {
			out[path] = n
		}
		for i, item := range n.Items() {
			flattenNode(out, fmt.Sprintf("%s[%d]", path, i), item, includeRefs)
		}

	case tree.KindElement:
		for key, val := range n.Attrs() {
			out[path+"/@"+key] = val
		}
		children := n.Children()
		if len(children) == 0 {
			out[path] = n.Text()
			return
		}
		if includeRefs {
			out[path] = n
		}
		for name, child := range children {
			flattenNode(out, path+"/"+name, child, includeRefs)
		}
	}
}
