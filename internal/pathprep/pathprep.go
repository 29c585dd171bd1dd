// Package pathprep makes sure an output path is ready to be written.
package pathprep

import (
	"fmt"
	"os"
	"path/filepath"
)

// Touch creates the parent directories of path and the file itself if they
// do not exist yet. Existing files are left untouched, so Touch is idempotent.
func Touch(path string) error {
	if path == "" {
		return fmt.Errorf("touch: %w", os.ErrInvalid)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create parent directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	return f.Close()
}
