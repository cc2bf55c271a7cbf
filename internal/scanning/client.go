package scanning

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultMaxAttempts is how many times a single image is submitted before giving up
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the wait after the first failed attempt; it doubles on each retry
	DefaultBaseDelay = time.Second
)

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// sleepContext is the default Sleeper
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled during retry backoff: %w", ctx.Err())
	}
}

// Client submits image files to a Backend with bounded retries
type Client struct {
	backend     Backend
	maxAttempts int
	baseDelay   time.Duration
	sleep       Sleeper
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithMaxAttempts overrides DefaultMaxAttempts
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBaseDelay overrides DefaultBaseDelay
func WithBaseDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.baseDelay = d
	}
}

// WithSleeper replaces the backoff wait, mainly for tests
func WithSleeper(s Sleeper) ClientOption {
	return func(c *Client) {
		c.sleep = s
	}
}

// NewClient creates a new Client around the given backend
func NewClient(backend Backend, opts ...ClientOption) *Client {
	c := &Client{
		backend:     backend,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze reads the image at imagePath and submits it to the backend.
// A missing file returns ErrNotFound without contacting the backend. Backend errors are
// retried with exponential backoff; once attempts run out a *BackendError is returned.
func (c *Client) Analyze(ctx context.Context, imagePath string) (*AnalyzeResult, error) {
	name := filepath.Base(imagePath)

	info, err := os.Stat(imagePath)
	if err != nil || info.IsDir() {
		slog.Warn("Skipping image, not found", "file", name, "path", imagePath)
		return nil, fmt.Errorf("%s: %w", imagePath, ErrNotFound)
	}
	data, err := os.ReadFile(imagePath)
	if err != nil {
		slog.Warn("Skipping image, unreadable", "file", name, "error", err)
		return nil, fmt.Errorf("%s: %w", imagePath, ErrNotFound)
	}
	contentType := detectContentType(imagePath, data)

	slog.Info("Submitting image for analysis", "file", name, "content_type", contentType, "size", len(data))

	var (
		lastErr  error
		attempts int
	)
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		attempts = attempt + 1
		result, err := c.backend.Analyze(ctx, data, contentType)
		if err == nil {
			return result, nil
		}
		lastErr = err
		slog.Warn("Analysis attempt failed",
			"file", name,
			"attempt", attempt+1,
			"max_attempts", c.maxAttempts,
			"error", err,
		)

		if attempt == c.maxAttempts-1 {
			break
		}
		delay := c.baseDelay * time.Duration(1<<attempt)
		if err := c.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	slog.Error("All analysis attempts failed", "file", name, "attempts", attempts, "error", lastErr)
	return nil, &BackendError{Path: imagePath, Attempts: attempts, Err: lastErr}
}

// Close closes the underlying backend
func (c *Client) Close() error {
	return c.backend.Close()
}

// detectContentType maps the file extension to a MIME type, sniffing the bytes for anything else
func detectContentType(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".pdf":
		return "application/pdf"
	case ".heic", ".heif":
		return "image/heic"
	}
	if isHEICFormat(data) {
		return "image/heic"
	}
	return http.DetectContentType(data)
}
