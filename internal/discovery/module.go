package discovery

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

// Module is the Go module enclosing the scanned directories.
type Module struct {
	// Path is the module path declared in go.mod.
	Path string
	// Dir is the absolute directory holding go.mod.
	Dir string
}

// FindModule walks up from dir to the nearest go.mod.
func FindModule(dir string) (Module, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return Module{}, fmt.Errorf("resolving %s: %w", dir, err)
	}

	for {
		data, err := os.ReadFile(filepath.Join(current, "go.mod"))
		switch {
		case err == nil:
			modulePath := modfile.ModulePath(data)
			if modulePath == "" {
				return Module{}, fmt.Errorf("%s: no module declaration in go.mod", current)
			}
			return Module{Path: modulePath, Dir: current}, nil
		case !errors.Is(err, os.ErrNotExist):
			return Module{}, fmt.Errorf("reading go.mod: %w", err)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return Module{}, errors.New("go.mod file not found (use -module to set the module path)")
		}
		current = parent
	}
}

// ImportPath returns the import path of the package in dir.
func (m Module) ImportPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(m.Dir, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside module %s", dir, m.Path)
	}
	if rel == "." {
		return m.Path, nil
	}
	return path.Join(m.Path, rel), nil
}
