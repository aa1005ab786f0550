package composer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ndisidore/grove/pkg/tree"
)

// WriteFile renders the document and writes it to path, overwriting any
// existing file.
func WriteFile(path string, doc *tree.Document, opts Options) error {
	if err := os.WriteFile(path, []byte(String(doc, opts)), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// WriteFileAtomic renders the document to a temporary file in the target
// directory and renames it into place, so readers never observe a partial
// document. The temporary file is removed when any step fails.
func WriteFileAtomic(path string, doc *tree.Document, opts Options) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".grove-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.WriteString(String(doc, opts))
	closeErr := tmp.Close()
	if err := writeErr; err == nil {
		err = closeErr
	} else if closeErr != nil {
		err = fmt.Errorf("%w (close failed: %w)", err, closeErr)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("renaming %s to %s: %w", tmpName, path, err)
	}
	return nil
}
