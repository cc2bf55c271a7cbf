package scanning

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the image path does not reference a readable file
	ErrNotFound = errors.New("image not found")

	// ErrBackendFailure is matched by every error returned after retries are exhausted
	ErrBackendFailure = errors.New("backend failure")
)

// BackendError reports an image that still failed after all attempts
type BackendError struct {
	Path     string
	Attempts int
	Err      error // last error seen
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("analyzing %s failed after %d attempts: %v", e.Path, e.Attempts, e.Err)
}

// Unwrap exposes both ErrBackendFailure and the last backend error to errors.Is/As
func (e *BackendError) Unwrap() []error {
	return []error{ErrBackendFailure, e.Err}
}
