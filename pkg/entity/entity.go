// Package entity encodes and decodes XML character entities and numeric
// character references.
package entity

import (
	"strconv"
	"strings"
)

// The five predefined XML entities.
func defaultEntities() map[string]string {
	return map[string]string{
		"amp":  "&",
		"lt":   "<",
		"gt":   ">",
		"apos": "'",
		"quot": `"`,
	}
}

var (
	_textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	_attrEscaper = strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", ">", "&gt;", "'", "&apos;", `"`, "&quot;",
	)
)

// Codec translates between raw and entity-encoded text. The named-entity
// table is held by the codec itself rather than shared package state, so
// callers can extend it per document without affecting one another.
type Codec struct {
	entities map[string]string
}

// New returns a codec loaded with the five predefined XML entities.
func New() *Codec {
	return &Codec{entities: defaultEntities()}
}

// Define adds or overrides a named entity used during decoding. The name is
// given without the surrounding "&" and ";".
func (c *Codec) Define(name, value string) {
	c.entities[name] = value
}

// Decode replaces recognized entity references in s with their literal
// values: &#DDD; and &#xHHH; numeric references, plus any name in the
// codec's table. Unrecognized references pass through byte-for-byte; decode
// never fails.
func (c *Codec) Decode(s string) string {
	amp := strings.IndexByte(s, '&')
	if amp < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for amp >= 0 {
		b.WriteString(s[:amp])
		s = s[amp:]

		semi := strings.IndexByte(s, ';')
		if semi < 0 {
			break
		}
		if repl, ok := c.expand(s[1:semi]); ok {
			b.WriteString(repl)
			s = s[semi+1:]
		} else {
			// A bare ampersand; the next reference may begin before the
			// ";", so rescan from the following byte.
			b.WriteByte('&')
			s = s[1:]
		}
		amp = strings.IndexByte(s, '&')
	}
	b.WriteString(s)
	return b.String()
}

// expand resolves one reference body (the text between "&" and ";").
func (c *Codec) expand(ref string) (string, bool) {
	if v, ok := c.entities[ref]; ok {
		return v, true
	}
	if len(ref) < 2 || ref[0] != '#' {
		return "", false
	}
	body, base := ref[1:], 10
	if body[0] == 'x' || body[0] == 'X' {
		body, base = body[1:], 16
	}
	cp, err := strconv.ParseUint(body, base, 32)
	if err != nil {
		return "", false
	}
	return string(rune(cp)), true
}

// Encode escapes element content: "&", "<", and ">" only.
func (c *Codec) Encode(s string) string {
	return _textEscaper.Replace(s)
}

// EncodeAttr escapes attribute values: "&", "<", ">", "'", and `"`.
func (c *Codec) EncodeAttr(s string) string {
	return _attrEscaper.Replace(s)
}
