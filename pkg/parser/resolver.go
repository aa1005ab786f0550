package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Resolver opens named inputs for parsing. Implementations return a reader
// over the full document content; the parser always reads it to the end.
// Tests substitute an in-memory resolver.
type Resolver interface {
	Resolve(path string) (io.ReadCloser, error)
}

// FileResolver resolves inputs from the local filesystem.
type FileResolver struct{}

// Resolve opens a local file, cleaning the path first.
func (*FileResolver) Resolve(path string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", path, err)
	}
	return f, nil
}
