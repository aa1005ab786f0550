// Package tree defines the in-memory node model for parsed XML documents.
package tree

// Kind discriminates the closed set of node variants.
type Kind int

// Node variants. A Text node holds decoded character data, an Element node
// holds attributes and named children, and a Sequence node aggregates
// same-named sibling elements in first-seen order.
const (
	KindText Kind = iota
	KindElement
	KindSequence
)

// String returns the variant name, for error messages and logs.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindElement:
		return "element"
	case KindSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// Node is one unit of a parsed tree. The zero value is an empty text leaf.
//
// Attributes live in a namespace separate from children; they are only
// merged into the children map when the parser is configured to do so.
// Character data belonging to an element (mixed content) is stored on the
// element itself rather than as a child slot.
type Node struct {
	kind     Kind
	text     string
	attrs    map[string]string
	children map[string]*Node
	items    []*Node
}

// NewText returns a text leaf holding the given decoded character data.
func NewText(text string) *Node {
	return &Node{kind: KindText, text: text}
}

// NewElement returns an empty element node.
func NewElement() *Node {
	return &Node{kind: KindElement}
}

// NewSequence returns a sequence node aggregating the given items.
func NewSequence(items ...*Node) *Node {
	return &Node{kind: KindSequence, items: items}
}

// Kind reports the node variant.
func (n *Node) Kind() Kind { return n.kind }

// Text returns the node's character data. For elements this is the decoded,
// whitespace-trimmed text run captured between child tags.
func (n *Node) Text() string { return n.text }

// SetText replaces the node's character data.
func (n *Node) SetText(text string) { n.text = text }

// Attr returns the named attribute value and whether it is present.
func (n *Node) Attr(key string) (string, bool) {
	v, ok := n.attrs[key]
	return v, ok
}

// SetAttr sets an attribute, creating the attribute map on first use.
func (n *Node) SetAttr(key, value string) {
	if n.attrs == nil {
		n.attrs = make(map[string]string)
	}
	n.attrs[key] = value
}

// Attrs returns the attribute map, which may be nil. The map is owned by the
// node; callers must not retain it across mutations.
func (n *Node) Attrs() map[string]string { return n.attrs }

// Child returns the child slot for the given tag name. The returned node may
// be a Sequence when the tag occurred more than once under this element.
func (n *Node) Child(name string) (*Node, bool) {
	c, ok := n.children[name]
	return c, ok
}

// Children returns the child slot map, which may be nil.
func (n *Node) Children() map[string]*Node { return n.children }

// SetChild overwrites the child slot for name, creating the map on first use.
func (n *Node) SetChild(name string, child *Node) {
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	n.children[name] = child
}

// Append inserts a child under the given tag name, applying the sibling
// aggregation rule: the first occurrence is stored as the lone slot value,
// the second converts the slot to a two-item sequence, and later occurrences
// append to it. Source order is preserved within the sequence.
func (n *Node) Append(name string, child *Node) {
	existing, ok := n.children[name]
	if !ok {
		n.SetChild(name, child)
		return
	}
	if existing.kind == KindSequence {
		existing.items = append(existing.items, child)
		return
	}
	n.children[name] = NewSequence(existing, child)
}

// Items returns the aggregated members of a sequence node, or nil for other
// variants.
func (n *Node) Items() []*Node { return n.items }

// AsItems returns the node viewed as a sequence: a Sequence node yields its
// members, any other node yields itself as a one-item sequence. Indexed path
// segments rely on this view.
func (n *Node) AsItems() []*Node {
	if n.kind == KindSequence {
		return n.items
	}
	return []*Node{n}
}

// Push appends an item to a sequence node.
func (n *Node) Push(item *Node) {
	n.items = append(n.items, item)
}

// IsScalar reports whether the node dereferences to a plain string: a text
// leaf, or an element whose content is character data only. Attributes do
// not disqualify an element from being scalar.
func (n *Node) IsScalar() bool {
	switch n.kind {
	case KindText:
		return true
	case KindElement:
		return len(n.children) == 0
	default:
		return false
	}
}

// Collapse applies the structural reduction rules to a finished element:
// an element with no attributes and no children reduces to its character
// data (an empty element reduces to the empty string). Other nodes are
// returned unchanged.
func (n *Node) Collapse() *Node {
	if n.kind == KindElement && len(n.attrs) == 0 && len(n.children) == 0 {
		return NewText(n.text)
	}
	return n
}

// ReplaceWith overwrites this node's contents in place with those of other.
// Existing references to the node observe the new contents, which is what
// write-through path handles rely on.
func (n *Node) ReplaceWith(other *Node) {
	*n = *other
}
