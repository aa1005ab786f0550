package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseErrorRendering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  ParseError
		want string
	}{
		{
			name: "full record",
			err:  ParseError{Message: "malformed tag", Tag: "a b", Line: 4},
			want: "line 4: malformed tag: <a b>",
		},
		{
			name: "no line",
			err:  ParseError{Message: "no root element found"},
			want: "no root element found",
		},
		{
			name: "no tag",
			err:  ParseError{Message: "empty input", Line: 1},
			want: "line 1: empty input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestDocumentErr(t *testing.T) {
	t.Parallel()

	d := &Document{}
	assert.False(t, d.HasErrors())
	assert.NoError(t, d.Err())

	d.AddError("first problem", "tag", 1)
	d.AddError("second problem", "", 0)
	require.True(t, d.HasErrors())
	require.Len(t, d.Errors, 2)

	err := d.Err()
	require.Error(t, err)
	assert.ErrorContains(t, err, "first problem")
	assert.ErrorContains(t, err, "second problem")
}
