package composer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndisidore/grove/pkg/entity"
	"github.com/ndisidore/grove/pkg/parser"
	"github.com/ndisidore/grove/pkg/tree"
)

// parse is a test helper producing a clean document or failing.
func parse(t *testing.T, input string) *tree.Document {
	t.Helper()
	p := &parser.Parser{}
	doc := p.ParseString(input)
	require.False(t, doc.HasErrors(), "parse errors: %v", doc.Err())
	return doc
}

func TestString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		opts  Options
		want  string
	}{
		{
			name:  "children sorted by tag name",
			input: `<doc><b>2</b><a>1</a></doc>`,
			want: `<?xml version="1.0"?>
<doc>
  <a>1</a>
  <b>2</b>
</doc>
`,
		},
		{
			name:  "sequence keeps source order under one tag",
			input: `<l><i>b</i><i>a</i></l>`,
			want: `<?xml version="1.0"?>
<l>
  <i>b</i>
  <i>a</i>
</l>
`,
		},
		{
			name:  "empty element self-closes",
			input: `<doc><e/></doc>`,
			want: `<?xml version="1.0"?>
<doc>
  <e/>
</doc>
`,
		},
		{
			name:  "mixed text is emitted before child tags",
			input: `<doc>hi<a>1</a></doc>`,
			want: `<?xml version="1.0"?>
<doc>
  hi
  <a>1</a>
</doc>
`,
		},
		{
			name:  "captured preamble replayed verbatim",
			input: `<?xml version="1.0" encoding="UTF-8"?><!DOCTYPE doc SYSTEM "doc.dtd"><doc>x</doc>`,
			want: `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE doc SYSTEM "doc.dtd">
<doc>x</doc>
`,
		},
		{
			name:  "special characters re-escaped",
			input: `<doc><a q="say &quot;hi&quot;">1 &lt; 2 &amp; 3</a></doc>`,
			want: `<?xml version="1.0"?>
<doc>
  <a q="say &quot;hi&quot;">1 &lt; 2 &amp; 3</a>
</doc>
`,
		},
		{
			name:  "compress emits a single line",
			input: `<l><i>b</i><i>a</i></l>`,
			opts:  Options{Compress: true},
			want:  `<?xml version="1.0"?><l><i>b</i><i>a</i></l>`,
		},
		{
			name:  "custom indent unit",
			input: `<doc><a>1</a></doc>`,
			opts:  Options{Indent: "\t"},
			want: "<?xml version=\"1.0\"?>\n<doc>\n\t<a>1</a>\n</doc>\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, String(parse(t, tt.input), tt.opts))
		})
	}
}

func TestStringSortsAttributes(t *testing.T) {
	t.Parallel()

	root := tree.NewElement()
	root.SetAttr("zeta", "2")
	root.SetAttr("alpha", "1")
	doc := &tree.Document{RootName: "doc", Root: root}

	assert.Equal(t, `<?xml version="1.0"?>
<doc alpha="1" zeta="2"/>
`, String(doc, Options{}))
}

func TestStringIsStable(t *testing.T) {
	t.Parallel()

	// Two documents that differ only in source ordering serialize identically.
	a := parse(t, `<doc x="1" y="2"><b>2</b><a>1</a></doc>`)
	b := parse(t, `<doc y="2" x="1"><a>1</a><b>2</b></doc>`)
	assert.Equal(t, String(a, Options{}), String(b, Options{}))
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{
		`<doc><a>1</a><b q="v">2</b></doc>`,
		`<l><i>x</i><i>y</i><i>z</i></l>`,
		`<doc>text &amp; more<sub>1 &lt; 2</sub></doc>`,
		`<?xml version="1.0" encoding="UTF-8"?><doc><e/></doc>`,
	}

	for _, input := range inputs {
		first := String(parse(t, input), Options{})
		p := &parser.Parser{}
		redoc := p.ParseString(first)
		require.False(t, redoc.HasErrors(), "re-parse errors: %v", redoc.Err())
		assert.Equal(t, first, String(redoc, Options{}))
	}
}

func TestFragment(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<doc><item id="3">hi</item></doc>`)
	item, ok := doc.Root.Child("item")
	require.True(t, ok)

	got := Fragment("item", item, Options{})
	assert.Equal(t, "<item id=\"3\">hi</item>\n", got)
	assert.False(t, strings.Contains(got, "<?xml"))
}

func TestCustomEntityEncoding(t *testing.T) {
	t.Parallel()

	// Encoding uses the escaper tables regardless of extra decode entities.
	codec := entity.New()
	codec.Define("co", "Example Corp")
	doc := parse(t, `<doc>a &amp; b</doc>`)
	assert.Equal(t, `<?xml version="1.0"?>
<doc>a &amp; b</doc>
`, String(doc, Options{Entities: codec}))
}
