package localfiles

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"
)

// File is a collected path plus lazily read content.
type File struct {
	Root string
	Path string
}

// Files pairs every relative path with root.
func Files(root string, paths []string) []File {
	out := make([]File, 0, len(paths))
	for _, p := range paths {
		out = append(out, File{Root: root, Path: p})
	}
	return out
}

// Read loads the file content from disk.
func (f File) Read() ([]byte, error) {
	data, err := os.ReadFile(f.Abs())
	if err != nil {
		return nil, fmt.Errorf("localfiles: read %s: %w", f.Path, err)
	}
	return data, nil
}

// ModTime returns the last modification time, zero when the file cannot be
// stat'ed.
func (f File) ModTime() time.Time {
	info, err := os.Stat(f.Abs())
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Abs returns the OS path of the file.
func (f File) Abs() string {
	return filepath.Join(f.Root, filepath.FromSlash(f.Path))
}

// Dir returns the slash separated directory of the file relative to the
// root, "." for files at the top level.
func (f File) Dir() string {
	return path.Dir(f.Path)
}
