package xpath

import (
	"testing"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndisidore/grove/pkg/parser"
	"github.com/ndisidore/grove/pkg/tree"
)

const _listInput = `<List>
  <Item id="1">A</Item>
  <Item id="5">C</Item>
  <Item id="2">B</Item>
  <Meta><Count>3</Count></Meta>
</List>`

// parse is a test helper producing a clean document or failing.
func parse(t *testing.T, input string) *tree.Document {
	t.Helper()
	p := &parser.Parser{}
	doc := p.ParseString(input)
	require.False(t, doc.HasErrors(), "parse errors: %v", doc.Err())
	return doc
}

func TestLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "indexed member", path: "/List/Item[0]", want: "A"},
		{name: "later indexed member", path: "/List/Item[2]", want: "B"},
		{name: "attribute predicate", path: "/List/Item[@id='5']", want: "C"},
		{name: "attribute leaf", path: "/List/Item[0]/@id", want: "1"},
		{name: "nested scalar", path: "/List/Meta/Count", want: "3"},
		{name: "no leading slash", path: "List/Meta/Count", want: "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc := parse(t, _listInput)
			got, err := Lookup(doc, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookupStructural(t *testing.T) {
	t.Parallel()

	doc := parse(t, _listInput)

	// A sequence slot dereferences to the node itself.
	got, err := Lookup(doc, "/List/Item")
	require.NoError(t, err)
	n, ok := got.(*tree.Node)
	require.True(t, ok)
	require.Equal(t, tree.KindSequence, n.Kind())
	assert.Len(t, n.Items(), 3)

	// So does an element with children.
	got, err = Lookup(doc, "/List/Meta")
	require.NoError(t, err)
	n, ok = got.(*tree.Node)
	require.True(t, ok)
	assert.Equal(t, tree.KindElement, n.Kind())
}

func TestLookupFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		isNotFound bool
	}{
		{name: "missing child", path: "/List/Nope", isNotFound: true},
		{name: "wrong root name", path: "/Other/Item", isNotFound: true},
		{name: "index out of range", path: "/List/Item[9]", isNotFound: true},
		{name: "predicate without match", path: "/List/Item[@id='99']", isNotFound: true},
		{name: "missing attribute", path: "/List/Meta/@nope", isNotFound: true},
		{name: "descend through scalar", path: "/List/Meta/Count/Deeper", isNotFound: true},
		{name: "malformed index", path: "/List/Item[x]"},
		{name: "attribute as first segment", path: "/@id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc := parse(t, _listInput)
			_, err := Lookup(doc, tt.path)
			require.Error(t, err)
			if tt.isNotFound {
				assert.True(t, errdefs.IsNotFound(err))
			} else {
				assert.True(t, errdefs.IsInvalidArgument(err))
			}
		})
	}
}

func TestLookupEmptyDocument(t *testing.T) {
	t.Parallel()

	_, err := Lookup(&tree.Document{}, "/a")
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestLookupSequenceRoot(t *testing.T) {
	t.Parallel()

	// Repeated same-named top-level tags aggregate into a sequence root.
	doc := parse(t, `<x>1</x><x>2</x>`)
	require.Equal(t, tree.KindSequence, doc.Root.Kind())

	got, err := Lookup(doc, "/x[1]")
	require.NoError(t, err)
	assert.Equal(t, "2", got)

	_, err = Lookup(doc, "/x[5]")
	assert.True(t, errdefs.IsNotFound(err))
}

func TestHandleWriteThrough(t *testing.T) {
	t.Parallel()

	doc := parse(t, _listInput)
	h, err := LookupRef(doc, "/List/Item[@id='5']")
	require.NoError(t, err)

	require.NoError(t, h.Set("Z"))

	// The tree observed the write; the slot keeps its sequence position.
	got, err := Lookup(doc, "/List/Item[1]")
	require.NoError(t, err)
	assert.Equal(t, "Z", got)

	// The replacement is a plain scalar, so the old predicate no longer matches.
	_, err = Lookup(doc, "/List/Item[@id='5']")
	assert.True(t, errdefs.IsNotFound(err))
}

func TestSet(t *testing.T) {
	t.Parallel()

	t.Run("scalar", func(t *testing.T) {
		t.Parallel()
		doc := parse(t, _listInput)
		require.NoError(t, Set(doc, "/List/Meta/Count", "4"))
		got, err := Lookup(doc, "/List/Meta/Count")
		require.NoError(t, err)
		assert.Equal(t, "4", got)
	})

	t.Run("attribute", func(t *testing.T) {
		t.Parallel()
		doc := parse(t, _listInput)
		require.NoError(t, Set(doc, "/List/Item[0]/@id", "9"))
		got, err := Lookup(doc, "/List/Item[0]/@id")
		require.NoError(t, err)
		assert.Equal(t, "9", got)
	})

	t.Run("element replaces element", func(t *testing.T) {
		t.Parallel()
		doc := parse(t, _listInput)
		repl := tree.NewElement()
		repl.SetChild("Count", tree.NewText("0"))
		repl.SetChild("Fresh", tree.NewText("yes"))
		require.NoError(t, Set(doc, "/List/Meta", repl))
		got, err := Lookup(doc, "/List/Meta/Fresh")
		require.NoError(t, err)
		assert.Equal(t, "yes", got)
	})

	t.Run("sequence replaces sequence", func(t *testing.T) {
		t.Parallel()
		doc := parse(t, _listInput)
		require.NoError(t, Set(doc, "/List/Item", []*tree.Node{
			tree.NewText("x"), tree.NewText("y"),
		}))
		got, err := Lookup(doc, "/List/Item[1]")
		require.NoError(t, err)
		assert.Equal(t, "y", got)
	})

	t.Run("shape mismatch rejected", func(t *testing.T) {
		t.Parallel()
		doc := parse(t, _listInput)
		err := Set(doc, "/List/Meta", "scalar value")
		require.Error(t, err)
		assert.True(t, errdefs.IsInvalidArgument(err))
	})

	t.Run("attribute requires string", func(t *testing.T) {
		t.Parallel()
		doc := parse(t, _listInput)
		err := Set(doc, "/List/Item[0]/@id", 9)
		require.Error(t, err)
		assert.True(t, errdefs.IsInvalidArgument(err))
	})

	t.Run("missing target never created", func(t *testing.T) {
		t.Parallel()
		doc := parse(t, _listInput)
		err := Set(doc, "/List/Nope", "x")
		require.Error(t, err)
		assert.True(t, errdefs.IsNotFound(err))
	})
}

func TestMergedAttributeRepresentation(t *testing.T) {
	t.Parallel()

	p := &parser.Parser{MergeAttributes: true}
	doc := p.ParseString(`<List><Item id="1">A</Item></List>`)
	require.False(t, doc.HasErrors())

	// The attribute resolves through the merged child slot.
	got, err := Lookup(doc, "/List/Item/@id")
	require.NoError(t, err)
	assert.Equal(t, "1", got)

	// Predicates match against the merged representation too.
	res, err := Lookup(doc, "/List/Item[@id='1']")
	require.NoError(t, err)
	n, ok := res.(*tree.Node)
	require.True(t, ok)
	assert.Equal(t, "A", n.Text())
}

func TestSetWithCreate(t *testing.T) {
	t.Parallel()

	t.Run("builds missing chain from empty document", func(t *testing.T) {
		t.Parallel()
		doc := &tree.Document{}
		require.NoError(t, SetWithCreate(doc, "/Config/Server/Port", "8080"))
		assert.Equal(t, "Config", doc.RootName)
		got, err := Lookup(doc, "/Config/Server/Port")
		require.NoError(t, err)
		assert.Equal(t, "8080", got)
	})

	t.Run("overwrites final segment unconditionally", func(t *testing.T) {
		t.Parallel()
		doc := parse(t, _listInput)
		require.NoError(t, SetWithCreate(doc, "/List/Meta", "gone"))
		got, err := Lookup(doc, "/List/Meta")
		require.NoError(t, err)
		assert.Equal(t, "gone", got)
	})

	t.Run("replaces scalar intermediates with elements", func(t *testing.T) {
		t.Parallel()
		doc := parse(t, `<a><b>1</b></a>`)
		require.NoError(t, SetWithCreate(doc, "/a/b/c", "x"))
		got, err := Lookup(doc, "/a/b/c")
		require.NoError(t, err)
		assert.Equal(t, "x", got)
	})

	t.Run("single segment replaces the root", func(t *testing.T) {
		t.Parallel()
		doc := parse(t, _listInput)
		require.NoError(t, SetWithCreate(doc, "/List", "flat"))
		got, err := Lookup(doc, "/List")
		require.NoError(t, err)
		assert.Equal(t, "flat", got)
	})

	t.Run("root name mismatch rejected", func(t *testing.T) {
		t.Parallel()
		doc := parse(t, _listInput)
		err := SetWithCreate(doc, "/Other/x", "v")
		require.Error(t, err)
		assert.True(t, errdefs.IsInvalidArgument(err))
	})

	t.Run("indexed segments rejected", func(t *testing.T) {
		t.Parallel()
		doc := parse(t, _listInput)
		err := SetWithCreate(doc, "/List/Item[0]", "v")
		require.Error(t, err)
		assert.True(t, errdefs.IsInvalidArgument(err))
	})
}
