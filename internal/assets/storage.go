// Package assets provides read-only byte access to sticker files.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Storage reads asset bytes by the relative path stored on the asset row.
type Storage interface {
	Read(relPath string) ([]byte, error)
}

// Dir serves assets from a local directory tree.
type Dir struct {
	root string
}

// NewDir creates a Storage rooted at the given directory.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Read loads one asset's bytes. Paths that resolve outside the root are
// rejected.
func (d *Dir) Read(relPath string) ([]byte, error) {
	if relPath == "" {
		return nil, fmt.Errorf("assets: empty path")
	}
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("assets: path %q escapes storage root", relPath)
	}

	data, err := os.ReadFile(filepath.Join(d.root, clean))
	if err != nil {
		return nil, fmt.Errorf("assets: read %s: %w", relPath, err)
	}
	return data, nil
}
