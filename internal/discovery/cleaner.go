package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Clean removes GeneratedFile from every directory matched by patterns and
// returns the removed paths.
func Clean(patterns []string) ([]string, error) {
	dirs, err := ExpandPatterns(patterns)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, dir := range dirs {
		file := filepath.Join(dir, GeneratedFile)
		err := os.Remove(file)
		switch {
		case err == nil:
			removed = append(removed, file)
		case errors.Is(err, os.ErrNotExist):
		default:
			return removed, fmt.Errorf("removing %s: %w", file, err)
		}
	}
	return removed, nil
}
