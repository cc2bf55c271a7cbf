package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zombor/receipt-scanner/internal/config"
	"github.com/zombor/receipt-scanner/internal/export"
	"github.com/zombor/receipt-scanner/internal/scanning"
)

// newBackend builds the analysis backend selected by cfg.Backend
func newBackend(ctx context.Context, cfg *config.Config) (scanning.Backend, error) {
	switch cfg.Backend {
	case config.BackendAzure:
		slog.Info("Initializing Azure Document Intelligence backend...", "endpoint", cfg.AzureEndpoint, "api_version", cfg.AzureAPIVersion)
		return scanning.NewAzure(scanning.AzureConfig{
			Endpoint:   cfg.AzureEndpoint,
			Key:        cfg.AzureKey,
			APIVersion: cfg.AzureAPIVersion,
		})
	case config.BackendGemini:
		slog.Info("Initializing Gemini backend...", "model", cfg.GeminiModel)
		return scanning.NewGemini(ctx, cfg.GeminiKey, cfg.GeminiModel)
	case config.BackendVertex:
		slog.Info("Initializing Vertex AI backend...", "project", cfg.VertexProject, "region", cfg.VertexRegion, "model", cfg.VertexModel)
		return scanning.NewVertex(ctx, cfg.VertexProject, cfg.VertexRegion, cfg.VertexModel)
	case config.BackendOllama:
		slog.Info("Initializing Ollama backend...", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
		return scanning.NewOllama(cfg.OllamaURL, cfg.OllamaModel)
	}
	return nil, fmt.Errorf("invalid backend %q", cfg.Backend)
}

// newWriter builds the result sink. The returned func closes whatever the sink opened.
func newWriter(ctx context.Context, cfg *config.Config) (*export.Writer, func(), error) {
	dir, err := export.NewDir(cfg.OutputDir)
	if err != nil {
		return nil, nil, err
	}

	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Warn("Failed to close output", "error", err)
			}
		}
	}

	var detail export.DetailStore
	switch cfg.Store {
	case config.StoreBolt:
		bolt, err := export.NewBoltStore(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, bolt.Close)
		detail = bolt
	default:
		detail = export.NewJSONFile(dir, cfg.OutputBase)
	}

	var publisher export.Publisher
	if cfg.GCSBucket != "" {
		gcs, err := export.NewGCSPublisher(ctx, cfg.GCSBucket, cfg.GCSPrefix)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, gcs.Close)
		publisher = gcs
	}

	return export.NewWriter(detail, export.NewSummaryTable(dir, cfg.OutputBase), publisher), closeAll, nil
}
