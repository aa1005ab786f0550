package xpath

import (
	"fmt"

	"github.com/containerd/errdefs"

	"github.com/ndisidore/grove/pkg/tree"
)

// handleKind discriminates the mutation points a resolved path can address.
type handleKind int

const (
	_handleRoot  handleKind = iota // the document root slot
	_handleChild                   // a child slot in a parent element
	_handleItem                    // an index in a sequence slot
	_handleAttr                    // an attribute key on an element
)

// Handle is a resolved, mutable reference to one location inside a tree.
// It is an index-path token resolved freshly by each LookupRef call, not a
// long-lived alias: restructuring the tree (for example a lone child slot
// promoted to a sequence) invalidates nothing because the next write
// re-resolves from the root.
type Handle struct {
	kind   handleKind
	doc    *tree.Document
	parent *tree.Node // owning element (child/attr) or sequence node (item)
	name   string     // child slot name or attribute key
	index  int        // sequence index for _handleItem
}

// Node returns the node the handle addresses, or nil for attribute handles
// (attribute values are strings, not nodes).
func (h Handle) Node() *tree.Node {
	switch h.kind {
	case _handleRoot:
		return h.doc.Root
	case _handleChild:
		c, _ := h.parent.Child(h.name)
		return c
	case _handleItem:
		items := h.parent.Items()
		if h.index >= len(items) {
			return nil
		}
		return items[h.index]
	default:
		return nil
	}
}

// Value dereferences the handle to a scalar string: the attribute value for
// attribute handles, or the character data of a scalar node. ok is false
// when the target is structural.
func (h Handle) Value() (string, bool) {
	if h.kind == _handleAttr {
		return h.parent.Attr(h.name)
	}
	n := h.Node()
	if n == nil || !n.IsScalar() {
		return "", false
	}
	return n.Text(), true
}

// shape classifies a node for assignment compatibility.
func shape(n *tree.Node) string {
	switch {
	case n.Kind() == tree.KindSequence:
		return "sequence"
	case n.IsScalar():
		return "scalar"
	default:
		return "element"
	}
}

// toNode converts an assignable value into a node. Accepted values: string
// (scalar), *tree.Node, or []*tree.Node (sequence).
func toNode(v any) (*tree.Node, error) {
	switch v := v.(type) {
	case string:
		return tree.NewText(v), nil
	case *tree.Node:
		if v == nil {
			return nil, fmt.Errorf("nil node value: %w", errdefs.ErrInvalidArgument)
		}
		return v, nil
	case []*tree.Node:
		return tree.NewSequence(v...), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T: %w", v, errdefs.ErrInvalidArgument)
	}
}

// Set writes v through the handle, replacing the target's contents in
// place. The shape of v (scalar, element, sequence) must match the shape of
// the resolved target; Set never creates missing nodes.
func (h Handle) Set(v any) error {
	if h.kind == _handleAttr {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("attribute %q takes a string, got %T: %w", h.name, v, errdefs.ErrInvalidArgument)
		}
		h.parent.SetAttr(h.name, s)
		return nil
	}

	target := h.Node()
	if target == nil {
		return fmt.Errorf("handle no longer resolves: %w", errdefs.ErrNotFound)
	}
	val, err := toNode(v)
	if err != nil {
		return err
	}
	if got, want := shape(val), shape(target); got != want {
		return fmt.Errorf("cannot assign %s to %s target: %w", got, want, errdefs.ErrInvalidArgument)
	}
	target.ReplaceWith(val)
	return nil
}

// LookupRef resolves path against the document and returns a mutable handle
// on the target without dereferencing scalars. The returned error wraps
// errdefs.ErrNotFound when any segment fails to resolve.
func LookupRef(doc *tree.Document, path string) (Handle, error) {
	segs, err := parsePath(path)
	if err != nil {
		return Handle{}, err
	}
	if doc.Root == nil {
		return Handle{}, fmt.Errorf("path %q: document has no root: %w", path, errdefs.ErrNotFound)
	}

	h, err := rootHandle(doc, segs[0], path)
	if err != nil {
		return Handle{}, err
	}
	for _, seg := range segs[1:] {
		h, err = descend(h, seg, path)
		if err != nil {
			return Handle{}, err
		}
	}
	return h, nil
}

// rootHandle applies the first segment, which addresses the document root
// by its tag name.
func rootHandle(doc *tree.Document, seg segment, path string) (Handle, error) {
	if seg.kind == _segAttr {
		return Handle{}, fmt.Errorf("path %q: cannot start at an attribute: %w", path, errdefs.ErrInvalidArgument)
	}
	if seg.name != doc.RootName {
		return Handle{}, fmt.Errorf("path %q: no root element %q: %w", path, seg.name, errdefs.ErrNotFound)
	}
	root := Handle{kind: _handleRoot, doc: doc}
	switch seg.kind {
	case _segIndex:
		items := doc.Root.AsItems()
		if seg.index >= len(items) {
			return Handle{}, fmt.Errorf("path %q: root index out of range: %w", path, errdefs.ErrNotFound)
		}
		if doc.Root.Kind() == tree.KindSequence {
			return Handle{kind: _handleItem, parent: doc.Root, index: seg.index}, nil
		}
	case _segMatch:
		for i, item := range doc.Root.AsItems() {
			if !attrEquals(item, seg.attr, seg.value) {
				continue
			}
			if doc.Root.Kind() == tree.KindSequence {
				return Handle{kind: _handleItem, parent: doc.Root, index: i}, nil
			}
			return root, nil
		}
		return Handle{}, fmt.Errorf("path %q: no match for @%s=%q: %w", path, seg.attr, seg.value, errdefs.ErrNotFound)
	}
	return root, nil
}

// descend applies one non-root segment to the node behind h.
func descend(h Handle, seg segment, path string) (Handle, error) {
	node := h.Node()
	if node == nil || node.Kind() != tree.KindElement {
		return Handle{}, fmt.Errorf("path %q: %q is not an element: %w", path, seg.name, errdefs.ErrNotFound)
	}

	if seg.kind == _segAttr {
		if _, ok := node.Attr(seg.name); ok {
			return Handle{kind: _handleAttr, parent: node, name: seg.name}, nil
		}
		// Merged-attribute representation: the attribute lives as a child
		// text slot.
		if c, ok := node.Child(seg.name); ok && c.IsScalar() {
			return Handle{kind: _handleChild, parent: node, name: seg.name}, nil
		}
		return Handle{}, fmt.Errorf("path %q: no attribute %q: %w", path, seg.name, errdefs.ErrNotFound)
	}

	slot, ok := node.Child(seg.name)
	if !ok {
		return Handle{}, fmt.Errorf("path %q: no child %q: %w", path, seg.name, errdefs.ErrNotFound)
	}

	switch seg.kind {
	case _segChild:
		return Handle{kind: _handleChild, parent: node, name: seg.name}, nil

	case _segIndex:
		items := slot.AsItems()
		if seg.index >= len(items) {
			return Handle{}, fmt.Errorf("path %q: index %d out of range (%d items): %w",
				path, seg.index, len(items), errdefs.ErrNotFound)
		}
		if slot.Kind() == tree.KindSequence {
			return Handle{kind: _handleItem, parent: slot, index: seg.index}, nil
		}
		return Handle{kind: _handleChild, parent: node, name: seg.name}, nil

	default: // _segMatch
		for i, item := range slot.AsItems() {
			if !attrEquals(item, seg.attr, seg.value) {
				continue
			}
			if slot.Kind() == tree.KindSequence {
				return Handle{kind: _handleItem, parent: slot, index: i}, nil
			}
			return Handle{kind: _handleChild, parent: node, name: seg.name}, nil
		}
		return Handle{}, fmt.Errorf("path %q: no %q with @%s=%q: %w",
			path, seg.name, seg.attr, seg.value, errdefs.ErrNotFound)
	}
}

// attrEquals checks an attribute predicate against both the preserved
// representation (the attribute map) and the merged representation (a
// same-named scalar child slot).
func attrEquals(n *tree.Node, key, want string) bool {
	if v, ok := n.Attr(key); ok {
		return v == want
	}
	if c, ok := n.Child(key); ok && c.IsScalar() {
		return c.Text() == want
	}
	return false
}

// Lookup resolves path and dereferences the result: attribute values and
// scalar nodes yield their string value, structural targets yield the
// *tree.Node itself (a mutable view, still owned by the tree).
func Lookup(doc *tree.Document, path string) (any, error) {
	h, err := LookupRef(doc, path)
	if err != nil {
		return nil, err
	}
	if v, ok := h.Value(); ok {
		return v, nil
	}
	return h.Node(), nil
}

// Set resolves path and writes v through the resulting handle. It fails
// with errdefs.ErrNotFound when the path does not resolve and with
// errdefs.ErrInvalidArgument on shape mismatch; it never creates missing
// intermediate nodes.
func Set(doc *tree.Document, path string, v any) error {
	h, err := LookupRef(doc, path)
	if err != nil {
		return err
	}
	return h.Set(v)
}

// SetWithCreate writes v at path, creating every missing intermediate
// element along the way and unconditionally overwriting the final segment.
// Only plain name segments are supported; indices and predicates are
// rejected. Non-element nodes in the way are replaced by fresh elements.
func SetWithCreate(doc *tree.Document, path string, v any) error {
	segs, err := parsePath(path)
	if err != nil {
		return err
	}
	names, err := plainNames(segs)
	if err != nil {
		return err
	}
	val, err := toNode(v)
	if err != nil {
		return err
	}

	if doc.Root == nil {
		doc.RootName = names[0]
		doc.Root = tree.NewElement()
	} else if doc.RootName != names[0] {
		return fmt.Errorf("path %q: root is %q, not %q: %w",
			path, doc.RootName, names[0], errdefs.ErrInvalidArgument)
	}

	if len(names) == 1 {
		doc.Root.ReplaceWith(val)
		return nil
	}

	cur := doc.Root
	if cur.Kind() != tree.KindElement {
		cur.ReplaceWith(tree.NewElement())
	}
	for _, name := range names[1 : len(names)-1] {
		next, ok := cur.Child(name)
		if !ok || next.Kind() != tree.KindElement {
			next = tree.NewElement()
			cur.SetChild(name, next)
		}
		cur = next
	}
	cur.SetChild(names[len(names)-1], val)
	return nil
}
