package receipt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrInputPathInvalid is returned when the input is neither a file nor a directory
var ErrInputPathInvalid = errors.New("input path is not a file or directory")

// DefaultExtensions are the image types picked up from an input directory
var DefaultExtensions = []string{"png", "jpg", "jpeg"}

// extensionPattern builds a doublestar pattern such as "*.{png,jpg,jpeg}"
func extensionPattern(exts []string) string {
	cleaned := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			cleaned = append(cleaned, ext)
		}
	}
	if len(cleaned) == 0 {
		cleaned = DefaultExtensions
	}
	return "*.{" + strings.Join(cleaned, ",") + "}"
}

// DiscoverImages resolves the input path into the list of images to process.
// A directory yields its direct child files whose extension matches exts (case-insensitive);
// a file yields itself.
func DiscoverImages(path string, exts []string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, ErrInputPathInvalid)
	}
	if info.Mode().IsRegular() {
		return []string{path}, nil
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", path, ErrInputPathInvalid)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	pattern := extensionPattern(exts)
	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matched, err := doublestar.Match(pattern, strings.ToLower(entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("matching %s: %w", entry.Name(), err)
		}
		if matched {
			images = append(images, filepath.Join(path, entry.Name()))
		}
	}
	return images, nil
}
