package parser

import "strings"

// scanner is a forward-only cursor over the input text. It tracks an
// absolute byte position so error records can carry source line numbers;
// there is no lookbehind and no resynchronization.
type scanner struct {
	input string
	pos   int
}

// nextTag advances to the next tag boundary. It returns the character data
// preceding the tag and the tag body (the text between "<" and ">",
// exclusive). found is false at end of input, in which case text holds the
// remaining tail. terminated is false when a "<" was found with no closing
// ">" before end of input; the tag body then runs to the end of the input.
// tagStart is the byte offset of the "<", for line derivation.
func (s *scanner) nextTag() (text, tag string, tagStart int, found, terminated bool) {
	lt := strings.IndexByte(s.input[s.pos:], '<')
	if lt < 0 {
		text = s.input[s.pos:]
		s.pos = len(s.input)
		return text, "", 0, false, false
	}
	tagStart = s.pos + lt
	text = s.input[s.pos:tagStart]

	gt := strings.IndexByte(s.input[tagStart+1:], '>')
	if gt < 0 {
		tag = s.input[tagStart+1:]
		s.pos = len(s.input)
		return text, tag, tagStart, true, false
	}
	tag = s.input[tagStart+1 : tagStart+1+gt]
	s.pos = tagStart + 1 + gt + 1
	return text, tag, tagStart, true, true
}

// nextChunk returns the text up to (and excluding) the next ">", advancing
// past it. It is the extend-scan used to reassemble comments, CDATA
// sections, and inline doctypes whose bodies contain ">". ok is false when
// no further ">" exists, which callers report as an unclosed construct.
func (s *scanner) nextChunk() (string, bool) {
	gt := strings.IndexByte(s.input[s.pos:], '>')
	if gt < 0 {
		s.pos = len(s.input)
		return "", false
	}
	chunk := s.input[s.pos : s.pos+gt]
	s.pos = s.pos + gt + 1
	return chunk, true
}

// line returns the 1-based line number containing byte offset pos.
func (s *scanner) line(pos int) int {
	if pos > len(s.input) {
		pos = len(s.input)
	}
	return strings.Count(s.input[:pos], "\n") + 1
}
