package tree

import (
	"maps"
	"slices"
)

// Clone returns a deep copy of the node. Attribute maps, child slots, and
// sequence items are all copied to prevent aliasing between trees.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{kind: n.kind, text: n.text}
	if n.attrs != nil {
		c.attrs = maps.Clone(n.attrs)
	}
	if n.children != nil {
		c.children = make(map[string]*Node, len(n.children))
		for name, child := range n.children {
			c.children[name] = child.Clone()
		}
	}
	if n.items != nil {
		c.items = make([]*Node, len(n.items))
		for i, item := range n.items {
			c.items[i] = item.Clone()
		}
	}
	return c
}

// Clone returns a deep copy of the document, including the captured preamble
// and error list.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	return &Document{
		RootName: d.RootName,
		Root:     d.Root.Clone(),
		ProcInst: slices.Clone(d.ProcInst),
		Doctypes: slices.Clone(d.Doctypes),
		Errors:   slices.Clone(d.Errors),
	}
}
