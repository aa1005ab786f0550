// Package composer serializes grove tree documents back to XML text.
//
// Output ordering is deterministic rather than source-faithful: attributes
// and child tags are emitted sorted by name, while aggregated sibling
// sequences keep their stored first-seen order.
package composer

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/ndisidore/grove/pkg/entity"
	"github.com/ndisidore/grove/pkg/tree"
)

// _defaultDecl is emitted when the document captured no processor
// instructions of its own.
const _defaultDecl = `<?xml version="1.0"?>`

// _defaultIndent is the indent unit applied when Options.Indent is empty.
const _defaultIndent = "  "

// Options controls serialization.
type Options struct {
	// Compress suppresses all indentation and newlines, emitting the
	// document as one flattened line.
	Compress bool

	// Indent is the string repeated once per nesting level. Empty means two
	// spaces. Ignored when Compress is set.
	Indent string

	// Entities overrides the codec used to escape character data and
	// attribute values. Nil means the default codec.
	Entities *entity.Codec
}

// resolve applies option defaults, returning the codec, indent unit, and
// line separator to render with.
func (o Options) resolve() (codec *entity.Codec, unit, nl string) {
	codec = o.Entities
	if codec == nil {
		codec = entity.New()
	}
	unit = o.Indent
	if unit == "" {
		unit = _defaultIndent
	}
	nl = "\n"
	if o.Compress {
		nl, unit = "", ""
	}
	return codec, unit, nl
}

// String renders the document to XML text.
func String(doc *tree.Document, opts Options) string {
	codec, unit, nl := opts.resolve()

	var b strings.Builder
	if len(doc.ProcInst) > 0 {
		for _, pi := range doc.ProcInst {
			b.WriteString(pi)
			b.WriteString(nl)
		}
	} else {
		b.WriteString(_defaultDecl)
		b.WriteString(nl)
	}
	for _, dtd := range doc.Doctypes {
		b.WriteString(dtd)
		b.WriteString(nl)
	}
	if doc.Root != nil {
		render(&b, codec, doc.RootName, doc.Root, 0, unit, nl)
	}
	return b.String()
}

// Fragment renders a single named node without any document preamble.
func Fragment(name string, n *tree.Node, opts Options) string {
	codec, unit, nl := opts.resolve()
	var b strings.Builder
	render(&b, codec, name, n, 0, unit, nl)
	return b.String()
}

// render emits one named node. Sequences re-dispatch per item at the same
// depth under the same tag name, preserving stored order.
func render(b *strings.Builder, codec *entity.Codec, name string, n *tree.Node, depth int, unit, nl string) {
	if n.Kind() == tree.KindSequence {
		for _, item := range n.Items() {
			render(b, codec, name, item, depth, unit, nl)
		}
		return
	}

	indent := strings.Repeat(unit, depth)
	b.WriteString(indent)
	b.WriteByte('<')
	b.WriteString(name)
	writeAttrs(b, codec, n)

	children := n.Children()
	switch {
	case len(children) == 0 && n.Text() == "":
		b.WriteString("/>")
	case len(children) == 0:
		b.WriteByte('>')
		b.WriteString(codec.Encode(n.Text()))
		b.WriteString("</")
		b.WriteString(name)
		b.WriteByte('>')
	default:
		b.WriteByte('>')
		b.WriteString(nl)
		if n.Text() != "" {
			b.WriteString(strings.Repeat(unit, depth+1))
			b.WriteString(codec.Encode(n.Text()))
			b.WriteString(nl)
		}
		for _, tag := range slices.Sorted(maps.Keys(children)) {
			render(b, codec, tag, children[tag], depth+1, unit, nl)
		}
		b.WriteString(indent)
		b.WriteString("</")
		b.WriteString(name)
		b.WriteByte('>')
	}
	b.WriteString(nl)
}

// writeAttrs emits the node's attributes sorted by key. Attribute order in
// the output is deliberately not source order.
func writeAttrs(b *strings.Builder, codec *entity.Codec, n *tree.Node) {
	attrs := n.Attrs()
	for _, key := range slices.Sorted(maps.Keys(attrs)) {
		b.WriteByte(' ')
		b.WriteString(key)
		b.WriteString(`="`)
		b.WriteString(codec.EncodeAttr(attrs[key]))
		b.WriteByte('"')
	}
}

// WriteTo renders the document to w.
func WriteTo(w io.Writer, doc *tree.Document, opts Options) error {
	if _, err := io.WriteString(w, String(doc, opts)); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	return nil
}
