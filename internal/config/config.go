// Package config holds the settings of one scanner run. It is built once at startup and
// passed into constructors; nothing reads credentials from package state.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Backend names accepted by --backend
const (
	BackendAzure  = "azure"
	BackendGemini = "gemini"
	BackendVertex = "vertex"
	BackendOllama = "ollama"
)

// Detail store names accepted by --store
const (
	StoreJSON = "json"
	StoreBolt = "bolt"
)

// ErrMissingCredentials is returned when the selected backend has no credentials configured
var ErrMissingCredentials = errors.New("missing backend credentials")

// Config holds scanner configuration
type Config struct {
	Input   string
	Backend string

	// Azure Document Intelligence
	AzureEndpoint   string
	AzureKey        string
	AzureAPIVersion string

	// Gemini
	GeminiKey   string
	GeminiModel string

	// Vertex AI
	VertexProject string
	VertexRegion  string
	VertexModel   string

	// Ollama
	OllamaURL   string
	OllamaModel string

	// Batch
	Concurrency int
	MaxAttempts int
	Extensions  []string

	// Output
	OutputDir  string
	OutputBase string
	Store      string
	DBPath     string
	GCSBucket  string
	GCSPrefix  string
}

// ParseExtensions splits a comma separated extension list such as "png,jpg,.jpeg"
func ParseExtensions(s string) []string {
	var exts []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(part), "."))
		if part != "" {
			exts = append(exts, part)
		}
	}
	return exts
}

// Validate checks if configuration is valid. Credential problems wrap ErrMissingCredentials.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Input) == "" {
		return fmt.Errorf("input path is required")
	}

	switch c.Backend {
	case BackendAzure:
		if c.AzureEndpoint == "" || c.AzureKey == "" {
			return fmt.Errorf("%w: set AZURE_ENDPOINT and AZURE_KEY (or --azure-endpoint and --azure-key)", ErrMissingCredentials)
		}
	case BackendGemini:
		if c.GeminiKey == "" {
			return fmt.Errorf("%w: set GEMINI_API_KEY (or --gemini-key)", ErrMissingCredentials)
		}
	case BackendVertex:
		if c.VertexProject == "" || c.VertexRegion == "" {
			return fmt.Errorf("%w: set --vertex-project and --vertex-region", ErrMissingCredentials)
		}
	case BackendOllama:
	default:
		return fmt.Errorf("invalid backend %q: valid backends are azure, gemini, vertex, ollama", c.Backend)
	}

	if c.Concurrency < 1 || c.Concurrency > 100 {
		return fmt.Errorf("concurrency must be between 1 and 100, got %d", c.Concurrency)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}

	switch c.Store {
	case StoreJSON:
	case StoreBolt:
		if c.DBPath == "" {
			return fmt.Errorf("--db is required when --store is %q", StoreBolt)
		}
	default:
		return fmt.Errorf("invalid store %q: valid stores are json, bolt", c.Store)
	}

	if c.OutputBase == "" {
		return fmt.Errorf("output base name is required")
	}
	return nil
}
