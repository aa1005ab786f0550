package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "no references",
			input: "plain text",
			want:  "plain text",
		},
		{
			name:  "predefined entities",
			input: "&lt;a&gt; &amp; &apos;b&apos; &quot;c&quot;",
			want:  `<a> & 'b' "c"`,
		},
		{
			name:  "decimal reference",
			input: "&#65;&#66;",
			want:  "AB",
		},
		{
			name:  "hex reference",
			input: "&#x41;&#X42;",
			want:  "AB",
		},
		{
			name:  "multibyte code point",
			input: "&#x2603;",
			want:  "☃",
		},
		{
			name:  "unknown reference passes through",
			input: "a &nosuch; b",
			want:  "a &nosuch; b",
		},
		{
			name:  "bad numeric reference passes through",
			input: "&#x;&#zz;",
			want:  "&#x;&#zz;",
		},
		{
			name:  "ampersand without semicolon",
			input: "fish & chips",
			want:  "fish & chips",
		},
		{
			name:  "bare ampersand before a real entity",
			input: "AT&T &lt;x&gt;",
			want:  "AT&T <x>",
		},
		{
			name:  "doubled ampersand before a real entity",
			input: "&&amp;",
			want:  "&&",
		},
		{
			name:  "unknown reference followed by a real entity",
			input: "&nope;&amp;",
			want:  "&nope;&",
		},
		{
			name:  "trailing ampersand",
			input: "end&",
			want:  "end&",
		},
		{
			name:  "adjacent references",
			input: "&lt;&gt;",
			want:  "<>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, New().Decode(tt.input))
		})
	}
}

func TestDefine(t *testing.T) {
	t.Parallel()

	c := New()
	c.Define("copy", "©")
	assert.Equal(t, "© 2026", c.Decode("&copy; 2026"))

	// A codec's table is private to it.
	assert.Equal(t, "&copy; 2026", New().Decode("&copy; 2026"))
}

func TestEncode(t *testing.T) {
	t.Parallel()

	c := New()
	assert.Equal(t, "1 &lt; 2 &amp;&amp; 3 &gt; 2", c.Encode("1 < 2 && 3 > 2"))
	// Quotes pass through in element content.
	assert.Equal(t, `say "hi"`, c.Encode(`say "hi"`))
}

func TestEncodeAttr(t *testing.T) {
	t.Parallel()

	c := New()
	assert.Equal(t, "&quot;a&quot; &amp; &apos;b&apos; &lt;c&gt;", c.EncodeAttr(`"a" & 'b' <c>`))
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	c := New()
	for _, s := range []string{
		"a < b & c > d",
		`attr "quoted" with 'both'`,
		"no special characters",
	} {
		assert.Equal(t, s, c.Decode(c.Encode(s)))
		assert.Equal(t, s, c.Decode(c.EncodeAttr(s)))
	}
}
