package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScannerNextTag(t *testing.T) {
	t.Parallel()

	sc := scanner{input: `before<a href="x">after`}

	text, tag, tagStart, found, terminated := sc.nextTag()
	require.True(t, found)
	require.True(t, terminated)
	assert.Equal(t, "before", text)
	assert.Equal(t, `a href="x"`, tag)
	assert.Equal(t, 6, tagStart)

	text, _, _, found, _ = sc.nextTag()
	assert.False(t, found)
	assert.Equal(t, "after", text)
}

func TestScannerUnterminatedTag(t *testing.T) {
	t.Parallel()

	sc := scanner{input: `<a`}
	_, tag, _, found, terminated := sc.nextTag()
	require.True(t, found)
	assert.False(t, terminated)
	assert.Equal(t, "a", tag)
}

func TestScannerNextChunk(t *testing.T) {
	t.Parallel()

	sc := scanner{input: `one> two>tail`}
	chunk, ok := sc.nextChunk()
	require.True(t, ok)
	assert.Equal(t, "one", chunk)
	chunk, ok = sc.nextChunk()
	require.True(t, ok)
	assert.Equal(t, " two", chunk)
	_, ok = sc.nextChunk()
	assert.False(t, ok)
}

func TestScannerLine(t *testing.T) {
	t.Parallel()

	sc := scanner{input: "ab\ncd\nef"}
	assert.Equal(t, 1, sc.line(0))
	assert.Equal(t, 1, sc.line(2))
	assert.Equal(t, 2, sc.line(3))
	assert.Equal(t, 3, sc.line(7))
	assert.Equal(t, 3, sc.line(99))
}
