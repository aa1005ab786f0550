package tree

import (
	"errors"
	"fmt"
)

// ParseError records one structural problem found while tokenizing a
// document. Errors are accumulated on the Document rather than raised as
// control flow; callers inspect the list after parsing.
type ParseError struct {
	Message string
	Tag     string // offending raw tag text, without angle brackets
	Line    int    // 1-based source line, 0 when not derivable
}

// Error renders the record as "line N: message: <tag>". Line and tag are
// omitted when unknown.
func (e ParseError) Error() string {
	msg := e.Message
	if e.Tag != "" {
		msg = fmt.Sprintf("%s: <%s>", msg, e.Tag)
	}
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

// Document is the result of one parse: the root element, its tag name, the
// processor-instruction and doctype preamble captured verbatim from the
// source, and the accumulated parse errors. A Document is not safe for
// concurrent mutation; callers confine a document to one goroutine or treat
// each parse/mutate/compose cycle as a single critical section.
type Document struct {
	RootName string
	Root     *Node
	ProcInst []string // raw <?...?> tags, replayed verbatim on output
	Doctypes []string // raw <!DOCTYPE ...> tags, replayed verbatim on output
	Errors   []ParseError
}

// AddError appends a parse error record.
func (d *Document) AddError(message, tag string, line int) {
	d.Errors = append(d.Errors, ParseError{Message: message, Tag: tag, Line: line})
}

// HasErrors reports whether any parse errors were recorded.
func (d *Document) HasErrors() bool { return len(d.Errors) > 0 }

// Err joins the accumulated parse errors into a single error, or returns nil
// when the parse was clean.
func (d *Document) Err() error {
	if len(d.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(d.Errors))
	for i, e := range d.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}
