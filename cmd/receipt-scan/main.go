package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-scanner/internal/config"
	"github.com/zombor/receipt-scanner/internal/export"
	"github.com/zombor/receipt-scanner/internal/receipt"
	"github.com/zombor/receipt-scanner/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one scan and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// Check for version flag before parsing other flags
	for _, arg := range args {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Fprintln(stdout, version)
			return 0
		}
	}

	// A missing .env is fine, the environment may already be set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "error: loading .env: %v\n", err)
		return 1
	}

	fs := ff.NewFlagSet("receipt-scan")
	var (
		input         = fs.String('i', "input", "", "Path to a receipt image file or a directory of images (required)")
		backendName   = fs.StringLong("backend", config.BackendAzure, "Analysis backend: 'azure', 'gemini', 'vertex' or 'ollama'")
		azureEndpoint = fs.StringLong("azure-endpoint", "", "Azure Document Intelligence endpoint (or set AZURE_ENDPOINT env var)")
		azureKey      = fs.StringLong("azure-key", "", "Azure Document Intelligence key (or set AZURE_KEY env var)")
		azureVersion  = fs.StringLong("azure-api-version", scanning.DefaultAzureAPIVersion, "Azure Document Intelligence API version")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", scanning.DefaultGeminiModel, "Google Gemini model name")
		vertexProject = fs.StringLong("vertex-project", "", "Google Cloud project for Vertex AI")
		vertexRegion  = fs.StringLong("vertex-region", "us-central1", "Vertex AI region")
		vertexModel   = fs.StringLong("vertex-model", scanning.DefaultVertexModel, "Vertex AI model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2-vl)")
		concurrency   = fs.IntLong("concurrency", receipt.DefaultConcurrency, "Maximum number of images analyzed at once")
		maxAttempts   = fs.IntLong("max-attempts", scanning.DefaultMaxAttempts, "Attempts per image before giving up")
		retryDelay    = fs.DurationLong("retry-delay", scanning.DefaultBaseDelay, "Wait after the first failed attempt, doubled on each retry")
		extensions    = fs.StringLong("extensions", strings.Join(receipt.DefaultExtensions, ","), "Comma separated image extensions picked up from a directory")
		outputDir     = fs.StringLong("output-dir", ".", "Directory for the output files")
		outputBase    = fs.StringLong("output-base", export.DefaultBase, "Base name of the output files")
		store         = fs.StringLong("store", config.StoreJSON, "Detail store: 'json' or 'bolt'")
		dbPath        = fs.StringLong("db", "", "BoltDB file path when --store is bolt")
		gcsBucket     = fs.StringLong("gcs-bucket", "", "Also publish the detailed results to this Cloud Storage bucket (optional)")
		gcsPrefix     = fs.StringLong("gcs-prefix", "receipt-scans", "Object prefix inside --gcs-bucket")
		logLevel      = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		_             = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("RECEIPT_SCAN")); err != nil {
		fmt.Fprintf(stderr, "%s\n", ffhelp.Flags(fs))
		if errors.Is(err, ff.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	if err := setupLogger(stderr, *logLevel); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	cfg := &config.Config{
		Input:           *input,
		Backend:         strings.ToLower(*backendName),
		AzureEndpoint:   firstNonEmpty(*azureEndpoint, os.Getenv("AZURE_ENDPOINT")),
		AzureKey:        firstNonEmpty(*azureKey, os.Getenv("AZURE_KEY")),
		AzureAPIVersion: *azureVersion,
		GeminiKey:       firstNonEmpty(*geminiKey, os.Getenv("GEMINI_API_KEY")),
		GeminiModel:     *geminiModel,
		VertexProject:   *vertexProject,
		VertexRegion:    *vertexRegion,
		VertexModel:     *vertexModel,
		OllamaURL:       *ollamaURL,
		OllamaModel:     *ollamaModel,
		Concurrency:     *concurrency,
		MaxAttempts:     *maxAttempts,
		Extensions:      config.ParseExtensions(*extensions),
		OutputDir:       *outputDir,
		OutputBase:      *outputBase,
		Store:           strings.ToLower(*store),
		DBPath:          *dbPath,
		GCSBucket:       *gcsBucket,
		GCSPrefix:       *gcsPrefix,
	}
	if err := cfg.Validate(); err != nil {
		if !errors.Is(err, config.ErrMissingCredentials) {
			fmt.Fprintf(stderr, "%s\n", ffhelp.Flags(fs))
		}
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize backend", "backend", cfg.Backend, "error", err)
		return 1
	}
	client := scanning.NewClient(
		scanning.NewCachingBackend(backend, scanning.DefaultCacheTTL),
		scanning.WithMaxAttempts(cfg.MaxAttempts),
		scanning.WithBaseDelay(*retryDelay),
	)
	defer client.Close()

	service := receipt.NewService(client, cfg.Concurrency, cfg.Extensions)
	batch, err := service.Run(ctx, cfg.Input)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %s\n", inputErrorMessage(err, cfg.Input))
		return 1
	}
	if len(batch.Records) == 0 {
		printSummary(stdout, batch, nil)
		return 0
	}

	writer, closeSink, err := newWriter(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize output", "error", err)
		return 1
	}
	defer closeSink()

	result, err := writer.Save(ctx, batch.RunID, batch.Records)
	if err != nil {
		slog.Error("Failed to save results", "error", err)
		return 1
	}

	printSummary(stdout, batch, result)
	return 0
}

// inputErrorMessage describes a run that could not start
func inputErrorMessage(err error, input string) string {
	if errors.Is(err, receipt.ErrInputPathInvalid) {
		return "Path does not exist or is not a file/directory: " + input
	}
	return err.Error()
}

// setupLogger installs the default text logger at the requested level
func setupLogger(w io.Writer, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
