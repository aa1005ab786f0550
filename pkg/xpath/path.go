// Package xpath evaluates a restricted XPath-like path language against
// grove trees, for reads, in-place writes, and flattening.
//
// A path is a "/"-separated list of segments, each one of:
//
//	name             descend into child "name"
//	name[N]          index N (0-based) into the child's sequence view
//	name[@a='v']     first sequence member whose attribute a equals v
//	@a               attribute a of the current node
//
// The first segment addresses the document root by its tag name. Failures
// are classified with containerd/errdefs sentinels: errdefs.ErrNotFound for
// paths that do not resolve, errdefs.ErrInvalidArgument for malformed paths
// and shape mismatches. They are per-call return values, never accumulated.
package xpath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/containerd/errdefs"
)

// segmentKind discriminates the closed set of path segment forms.
type segmentKind int

const (
	_segChild segmentKind = iota
	_segIndex
	_segMatch
	_segAttr
)

// segment is one parsed path component.
type segment struct {
	kind  segmentKind
	name  string // child tag name, or attribute key for _segAttr
	index int    // _segIndex only
	attr  string // _segMatch predicate key
	value string // _segMatch predicate value
}

// parsePath splits a path on "/" (quote-aware, so predicate values may
// contain slashes) and parses each piece.
func parsePath(path string) ([]segment, error) {
	pieces := splitPath(path)
	if len(pieces) == 0 {
		return nil, fmt.Errorf("empty path: %w", errdefs.ErrInvalidArgument)
	}
	segs := make([]segment, 0, len(pieces))
	for _, piece := range pieces {
		seg, err := parseSegment(piece)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

// splitPath splits on "/" outside single quotes, dropping empty pieces so
// both "/a/b" and "a/b" address the same location.
func splitPath(path string) []string {
	var pieces []string
	start, inQuote := 0, false
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '\'':
			inQuote = !inQuote
		case '/':
			if !inQuote {
				if i > start {
					pieces = append(pieces, path[start:i])
				}
				start = i + 1
			}
		}
	}
	if start < len(path) {
		pieces = append(pieces, path[start:])
	}
	return pieces
}

// parseSegment parses one path component into its segment form.
func parseSegment(s string) (segment, error) {
	if strings.HasPrefix(s, "@") {
		if len(s) == 1 {
			return segment{}, fmt.Errorf("segment %q: missing attribute name: %w", s, errdefs.ErrInvalidArgument)
		}
		return segment{kind: _segAttr, name: s[1:]}, nil
	}

	br := strings.IndexByte(s, '[')
	if br < 0 {
		return segment{kind: _segChild, name: s}, nil
	}
	if br == 0 || !strings.HasSuffix(s, "]") {
		return segment{}, fmt.Errorf("segment %q: unbalanced brackets: %w", s, errdefs.ErrInvalidArgument)
	}
	name, body := s[:br], s[br+1:len(s)-1]

	if strings.HasPrefix(body, "@") {
		eq := strings.Index(body, "='")
		if eq < 1 || !strings.HasSuffix(body, "'") {
			return segment{}, fmt.Errorf("segment %q: malformed attribute predicate: %w", s, errdefs.ErrInvalidArgument)
		}
		return segment{
			kind:  _segMatch,
			name:  name,
			attr:  body[1:eq],
			value: body[eq+2 : len(body)-1],
		}, nil
	}

	n, err := strconv.Atoi(body)
	if err != nil || n < 0 {
		return segment{}, fmt.Errorf("segment %q: bad index %q: %w", s, body, errdefs.ErrInvalidArgument)
	}
	return segment{kind: _segIndex, name: name, index: n}, nil
}

// plainNames validates that every segment is a bare child name (the only
// form SetWithCreate accepts) and returns the names.
func plainNames(segs []segment) ([]string, error) {
	names := make([]string, len(segs))
	for i, seg := range segs {
		if seg.kind != _segChild {
			return nil, fmt.Errorf("only plain name segments may create nodes: %w", errdefs.ErrInvalidArgument)
		}
		names[i] = seg.name
	}
	return names, nil
}
