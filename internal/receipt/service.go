package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zombor/receipt-scanner/internal/scanning"
)

// DefaultConcurrency caps in-flight backend calls to stay within backend rate limits
const DefaultConcurrency = 5

// Analyzer submits one image path for analysis
type Analyzer interface {
	Analyze(ctx context.Context, imagePath string) (*scanning.AnalyzeResult, error)
}

// IDGenerator generates unique run IDs
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Batch is the outcome of one run. Records are in completion order.
type Batch struct {
	RunID      string
	Records    []*Record
	Discovered int
	Failed     int // NotFound or BackendFailure
	Empty      int // analyzed, but no receipt document
	StartedAt  time.Time
	FinishedAt time.Time
}

// Service runs the batch pipeline: discover, analyze concurrently, normalize
type Service struct {
	analyzer    Analyzer
	concurrency int
	extensions  []string
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with a uuid run ID generator and the wall clock
func NewService(analyzer Analyzer, concurrency int, extensions []string) *Service {
	return NewServiceWithDeps(analyzer, concurrency, extensions, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(analyzer Analyzer, concurrency int, extensions []string, idGen IDGenerator, timeSrc TimeSource) *Service {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return &Service{
		analyzer:    analyzer,
		concurrency: concurrency,
		extensions:  extensions,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// outcome is what one worker reports back
type outcome struct {
	file   string
	record *Record
	err    error
}

// Run processes every image under inputPath. Per-file failures are logged and dropped;
// only an unresolvable input path aborts the run.
func (s *Service) Run(ctx context.Context, inputPath string) (*Batch, error) {
	batch := &Batch{
		RunID:     s.idGenerator.Generate(),
		StartedAt: s.timeSource.Now(),
	}
	logger := slog.With("run_id", batch.RunID)

	images, err := DiscoverImages(inputPath, s.extensions)
	if err != nil {
		logger.Error("Cannot resolve input path", "path", inputPath, "error", err)
		return nil, err
	}
	batch.Discovered = len(images)
	batch.Records = make([]*Record, 0, len(images))

	if len(images) == 0 {
		logger.Info("No images found", "path", inputPath)
		batch.FinishedAt = s.timeSource.Now()
		return batch, nil
	}
	logger.Info("Processing images", "count", len(images), "concurrency", s.concurrency)

	results := make(chan outcome, len(images))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, imagePath := range images {
		g.Go(func() error {
			results <- s.process(ctx, imagePath)
			// per-file failures travel in the outcome, never through the group
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("waiting for workers: %w", err)
	}
	close(results)

	for res := range results {
		switch {
		case res.err != nil:
			batch.Failed++
			logFailure(logger, res)
		case res.record == nil:
			batch.Empty++
			logger.Warn("No receipt detected in image", "file", res.file)
		default:
			batch.Records = append(batch.Records, res.record)
		}
	}

	batch.FinishedAt = s.timeSource.Now()
	logger.Info("Batch complete",
		"discovered", batch.Discovered,
		"processed", len(batch.Records),
		"failed", batch.Failed,
		"empty", batch.Empty,
		"duration", batch.FinishedAt.Sub(batch.StartedAt),
	)
	return batch, nil
}

// process analyzes and normalizes a single image
func (s *Service) process(ctx context.Context, imagePath string) outcome {
	name := filepath.Base(imagePath)
	result, err := s.analyzer.Analyze(ctx, imagePath)
	if err != nil {
		return outcome{file: name, err: err}
	}
	return outcome{file: name, record: Normalize(result, name)}
}

func logFailure(logger *slog.Logger, res outcome) {
	var backendErr *scanning.BackendError
	switch {
	case errors.Is(res.err, scanning.ErrNotFound):
		logger.Warn("Dropping image, file not found", "file", res.file)
	case errors.As(res.err, &backendErr):
		logger.Error("Dropping image, backend failed", "file", res.file, "attempts", backendErr.Attempts, "error", backendErr.Err)
	default:
		logger.Error("Dropping image", "file", res.file, "error", res.err)
	}
}
