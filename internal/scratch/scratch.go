// Package scratch materialises request uploads as temporary files owned by
// a single request.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/OFFIS-RIT/tabula-web/backend/pkg/logger"
)

// File is a temporary file inside its own private directory. Artefacts
// written next to Path are removed together with it.
type File struct {
	Path string
	dir  string
}

// Write stores content as <base>/tabula-<id>/<name>. An empty base uses
// os.TempDir. The caller must call Remove, usually via defer.
func Write(base string, name string, content []byte) (*File, error) {
	if base == "" {
		base = os.TempDir()
	}
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("nanoid: %w", err)
	}
	dir := filepath.Join(base, "tabula-"+id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir tmp: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("write tmp file: %w", err)
	}

	return &File{Path: path, dir: dir}, nil
}

// Remove deletes the file and its directory. It is safe to call on nil and
// more than once.
func (f *File) Remove() {
	if f == nil || f.dir == "" {
		return
	}
	if err := os.RemoveAll(f.dir); err != nil {
		logger.Warn("Failed to remove temp dir", "dir", f.dir, "err", err)
	}
	f.dir = ""
}
