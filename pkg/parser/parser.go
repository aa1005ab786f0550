// Package parser converts XML text into grove tree documents.
//
// The tokenizer walks the input with a forward cursor, classifying each
// <...> tag and recursively assembling the tree. Structural errors are
// accumulated on the resulting Document rather than returned: a structural
// error stops tokenizing at the current recursion level and every enclosing
// level, yielding whatever partial tree was already assembled. Attribute
// list glitches are recorded but do not stop the parse.
package parser

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ndisidore/grove/pkg/entity"
	"github.com/ndisidore/grove/pkg/tree"
)

// Error messages used in accumulated parse records.
const (
	_errMalformedTag     = "malformed tag"
	_errMalformedSpecial = "malformed special tag"
	_errMalformedPI      = "malformed processor instruction"
	_errMalformedDTD     = "malformed DTD"
	_errMalformedCDATA   = "malformed CDATA section"
	_errMalformedAttrs   = "malformed attribute list"
	_errUnclosedComment  = "unclosed comment"
	_errUnclosedDTD      = "unclosed inline doctype"
	_errUnclosedCDATA    = "unclosed CDATA section"
	_errMultipleRoots    = "multiple top-level elements"
	_errNoRoot           = "no root element found"
	_errEmptyInput       = "empty input"
)

var (
	// A tag body: optional closing slash, a name, then the attribute (or
	// self-close) fragment. (?s) because attribute fragments may span lines.
	_tagRe = regexp.MustCompile(`(?s)^(/?)([\w\-:.]+)(.*)$`)

	// One key="value" or key='value' attribute pair at the head of the
	// attribute fragment.
	_attrRe = regexp.MustCompile(`(?s)^\s*([\w\-:.]+)\s*=\s*(?:"([^"]*)"|'([^']*)')`)

	// A processor instruction: "?" then a target name.
	_piRe = regexp.MustCompile(`^\?[\w\-:.]+(?:[\s?]|$)`)

	// Doctype forms: an external SYSTEM reference, the opening of an inline
	// subset, and the fully assembled inline subset.
	_dtdSystemRe = regexp.MustCompile(`^!DOCTYPE\s+[\w\-:.]+\s+SYSTEM\s+"[^"]*"\s*$`)
	_dtdOpenRe   = regexp.MustCompile(`^!DOCTYPE\s+[\w\-:.]+\s*\[`)
	_dtdInlineRe = regexp.MustCompile(`(?s)^!DOCTYPE\s+[\w\-:.]+\s*\[.*\]\s*$`)

	// A fully assembled CDATA section.
	_cdataRe = regexp.MustCompile(`(?s)^!\[CDATA\[(.*)\]\]$`)
)

// Parser holds parse configuration. The zero value parses with attribute
// preservation and the predefined entity table; a nil Resolver falls back to
// the local filesystem.
type Parser struct {
	// Resolver opens named inputs for ParseFile. Nil means FileResolver.
	Resolver Resolver

	// MergeAttributes disables attribute preservation: attribute key/value
	// pairs are merged directly into the children mapping, where they may
	// collide with a same-named child element. This is a caller-selected
	// trade-off; collisions resolve in favor of the attribute.
	MergeAttributes bool

	// Entities overrides the entity table used to decode character data and
	// attribute values. Nil means the five predefined XML entities.
	Entities *entity.Codec
}

// ParseString parses XML text. The returned Document is never nil; callers
// inspect Document.Errors for accumulated parse errors.
func (p *Parser) ParseString(text string) *tree.Document {
	doc := &tree.Document{}
	p.parseInto(doc, text)
	return doc
}

// Parse reads all of r and parses it. name labels the input in error
// records. Read failures and zero-byte inputs are appended to the same
// error list as structural errors, so callers have one place to check.
func (p *Parser) Parse(r io.Reader, name string) *tree.Document {
	doc := &tree.Document{}
	data, err := io.ReadAll(r)
	if err != nil {
		doc.AddError(fmt.Sprintf("reading %s: %v", name, err), "", 0)
		return doc
	}
	if len(data) == 0 {
		doc.AddError(_errEmptyInput, name, 0)
		return doc
	}
	p.parseInto(doc, string(data))
	return doc
}

// ParseFile opens path through the configured Resolver and parses its
// entire contents. File-open failures are reported through Document.Errors.
func (p *Parser) ParseFile(path string) *tree.Document {
	resolver := p.Resolver
	if resolver == nil {
		resolver = &FileResolver{}
	}
	f, err := resolver.Resolve(path)
	if err != nil {
		doc := &tree.Document{}
		doc.AddError(fmt.Sprintf("opening %s: %v", path, err), "", 0)
		return doc
	}
	defer func() { _ = f.Close() }()
	return p.Parse(f, path)
}

// Reload re-parses freshly supplied text into doc, discarding the previous
// tree, preamble, and error list. It is a full re-parse, not incremental.
func (p *Parser) Reload(doc *tree.Document, text string) {
	*doc = *p.ParseString(text)
}

// ReloadFile re-parses the named file into doc, discarding previous state.
func (p *Parser) ReloadFile(doc *tree.Document, path string) {
	*doc = *p.ParseFile(path)
}

// parseInto runs the tokenizer over text and fills doc.
func (p *Parser) parseInto(doc *tree.Document, text string) {
	codec := p.Entities
	if codec == nil {
		codec = entity.New()
	}
	r := &run{
		sc:    scanner{input: text},
		doc:   doc,
		codec: codec,
		merge: p.MergeAttributes,
	}

	root := r.parseElement("")

	// Stray character data captured at the document level is discarded.
	children := root.Children()
	switch len(children) {
	case 0:
		if !doc.HasErrors() {
			doc.AddError(_errNoRoot, "", 0)
		}
	case 1:
		for name, node := range children {
			doc.RootName, doc.Root = name, node
		}
	default:
		doc.AddError(_errMultipleRoots, "", 0)
	}
}

// run carries the state of one parse: the cursor, the output document, and
// the abort flag that propagates a structural error outward through every
// enclosing recursion level.
type run struct {
	sc     scanner
	doc    *tree.Document
	codec  *entity.Codec
	merge  bool
	failed bool
}

// record appends a non-fatal parse error.
func (r *run) record(pos int, tag, message string) {
	r.doc.AddError(message, tag, r.sc.line(pos))
}

// fail appends a parse error and aborts tokenizing at every level.
func (r *run) fail(pos int, tag, message string) {
	r.record(pos, tag, message)
	r.failed = true
}

// parseElement consumes tags until it finds the closing tag named by
// closing (empty at document level), returning the assembled branch. It
// returns early, with the partial branch, once any nested call has failed.
func (r *run) parseElement(closing string) *tree.Node {
	branch := tree.NewElement()
	for !r.failed {
		text, tag, tagStart, found, terminated := r.sc.nextTag()
		r.appendText(branch, text)
		if !found {
			break
		}
		if !terminated {
			r.fail(tagStart, tag, _errMalformedTag)
			break
		}

		switch {
		case strings.HasPrefix(tag, "?"):
			r.procInst(tag, tagStart)
		case strings.HasPrefix(tag, "!--"):
			r.comment(tag, tagStart)
		case strings.HasPrefix(tag, "![CDATA"):
			r.cdata(branch, tag, tagStart)
		case strings.HasPrefix(tag, "!DOCTYPE"):
			r.doctype(tag, tagStart)
		case strings.HasPrefix(tag, "!"):
			r.fail(tagStart, tag, _errMalformedSpecial)
		default:
			if done := r.element(branch, tag, tagStart, closing); done {
				return branch
			}
		}
	}
	return branch
}

// appendText decodes and attaches a character data run to the branch,
// space-joining it with any prior run. Leading and trailing whitespace is
// trimmed; whitespace-only runs are dropped.
func (r *run) appendText(branch *tree.Node, raw string) {
	t := strings.TrimSpace(raw)
	if t == "" {
		return
	}
	decoded := r.codec.Decode(t)
	if cur := branch.Text(); cur != "" {
		branch.SetText(cur + " " + decoded)
	} else {
		branch.SetText(decoded)
	}
}

// procInst captures a processor instruction verbatim for later replay.
func (r *run) procInst(tag string, pos int) {
	if !_piRe.MatchString(tag) {
		r.fail(pos, tag, _errMalformedPI)
		return
	}
	r.doc.ProcInst = append(r.doc.ProcInst, "<"+tag+">")
}

// comment reassembles a comment whose body may contain ">" and discards it.
func (r *run) comment(tag string, pos int) {
	acc := tag
	for !strings.HasSuffix(acc, "--") {
		chunk, ok := r.sc.nextChunk()
		if !ok {
			r.fail(pos, tag, _errUnclosedComment)
			return
		}
		acc += ">" + chunk
	}
	// Comment text is not stored in the tree.
}

// cdata reassembles a CDATA section and appends its contents to the
// branch's character data. The contents pass through entity decoding like
// ordinary text; CDATA does not shield them here.
func (r *run) cdata(branch *tree.Node, tag string, pos int) {
	acc := tag
	for !strings.HasSuffix(acc, "]]") {
		chunk, ok := r.sc.nextChunk()
		if !ok {
			r.fail(pos, tag, _errUnclosedCDATA)
			return
		}
		acc += ">" + chunk
	}
	m := _cdataRe.FindStringSubmatch(acc)
	if m == nil {
		r.fail(pos, acc, _errMalformedCDATA)
		return
	}
	r.appendText(branch, m[1])
}

// doctype captures an external SYSTEM doctype verbatim, or reassembles an
// inline subset (terminated by "]") and captures that.
func (r *run) doctype(tag string, pos int) {
	if _dtdSystemRe.MatchString(tag) {
		r.doc.Doctypes = append(r.doc.Doctypes, "<"+tag+">")
		return
	}
	if !_dtdOpenRe.MatchString(tag) {
		r.fail(pos, tag, _errMalformedDTD)
		return
	}
	acc := tag
	for !strings.HasSuffix(acc, "]") {
		chunk, ok := r.sc.nextChunk()
		if !ok {
			r.fail(pos, tag, _errUnclosedDTD)
			return
		}
		acc += ">" + chunk
	}
	if !_dtdInlineRe.MatchString(acc) {
		r.fail(pos, acc, _errMalformedDTD)
		return
	}
	r.doc.Doctypes = append(r.doc.Doctypes, "<"+acc+">")
}

// element handles an ordinary opening or closing tag. It reports true when
// the tag closed the element this recursion level was parsing.
func (r *run) element(branch *tree.Node, tag string, pos int, closing string) (done bool) {
	m := _tagRe.FindStringSubmatch(tag)
	if m == nil {
		r.fail(pos, tag, _errMalformedTag)
		return false
	}
	name, rest := m[2], m[3]

	if m[1] == "/" {
		if name != closing {
			r.fail(pos, tag, fmt.Sprintf("mismatched closing tag, expected %q", closing))
			return false
		}
		return true
	}

	attrs, leftover := r.parseAttrs(rest)
	selfClose := false
	if leftover == "/" {
		selfClose, leftover = true, ""
	}
	if leftover != "" {
		// Recorded but not fatal; the parse continues.
		r.record(pos, tag, _errMalformedAttrs)
	}

	child := tree.NewElement()
	if !selfClose {
		child = r.parseElement(name)
	}
	for _, a := range attrs {
		if r.merge {
			child.SetChild(a.key, tree.NewText(a.value))
		} else {
			child.SetAttr(a.key, a.value)
		}
	}
	branch.Append(name, child.Collapse())
	return false
}

// attrPair is one parsed key/value attribute.
type attrPair struct {
	key   string
	value string
}

// parseAttrs consumes key="value" pairs from the attribute fragment,
// entity-decoding each value. It returns the pairs in source order and any
// trimmed text it could not parse.
func (r *run) parseAttrs(fragment string) ([]attrPair, string) {
	var attrs []attrPair
	for {
		m := _attrRe.FindStringSubmatch(fragment)
		if m == nil {
			break
		}
		attrs = append(attrs, attrPair{key: m[1], value: r.codec.Decode(m[2] + m[3])})
		fragment = fragment[len(m[0]):]
	}
	return attrs, strings.TrimSpace(fragment)
}
