package export

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dir is the local output directory for run artifacts
type Dir struct {
	basePath string
}

// NewDir creates a new Dir, creating the directory if it doesn't exist
func NewDir(basePath string) (*Dir, error) {
	if basePath == "" {
		basePath = "."
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Dir{basePath: basePath}, nil
}

// Path returns the full path of filename inside the directory
func (d *Dir) Path(filename string) string {
	return filepath.Join(d.basePath, filename)
}

// Save writes (or overwrites) a file and returns its full path
func (d *Dir) Save(filename string, data []byte) (string, error) {
	path := d.Path(filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return path, nil
}

// read returns the contents of a file in the directory
func (d *Dir) read(filename string) ([]byte, error) {
	data, err := os.ReadFile(d.Path(filename))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// OpenAppend opens filename for appending. fresh is true when the file did not exist or was empty.
func (d *Dir) OpenAppend(filename string) (f *os.File, fresh bool, err error) {
	path := d.Path(filename)
	f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, false, fmt.Errorf("opening file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, false, fmt.Errorf("stat file: %w", err)
	}
	return f, info.Size() == 0, nil
}
