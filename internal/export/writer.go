package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zombor/receipt-scanner/internal/receipt"
)

// DefaultBase is the file name stem of the output artifacts
const DefaultBase = "extraction_log"

// Result says where a Save put its output
type Result struct {
	Saved       int
	DetailPath  string
	SummaryPath string
	Published   string // remote location, empty if no publisher
}

// Writer is the result sink: a detail store, the summary table and an optional publisher
type Writer struct {
	detail    DetailStore
	summary   *SummaryTable
	publisher Publisher
}

// NewWriter creates a new Writer. publisher may be nil.
func NewWriter(detail DetailStore, summary *SummaryTable, publisher Publisher) *Writer {
	return &Writer{
		detail:    detail,
		summary:   summary,
		publisher: publisher,
	}
}

// Save writes the records of one run. Nothing is written for an empty run.
func (w *Writer) Save(ctx context.Context, runID string, records []*receipt.Record) (*Result, error) {
	if len(records) == 0 {
		return &Result{}, nil
	}

	slog.Info("Saving detailed results", "location", w.detail.Location(), "records", len(records))
	if err := w.detail.Put(ctx, records); err != nil {
		return nil, fmt.Errorf("saving detailed records: %w", err)
	}

	slog.Info("Appending summary", "location", w.summary.Location())
	if err := w.summary.Append(records); err != nil {
		return nil, fmt.Errorf("appending summary: %w", err)
	}

	result := &Result{
		Saved:       len(records),
		DetailPath:  w.detail.Location(),
		SummaryPath: w.summary.Location(),
	}

	if w.publisher != nil {
		data, err := marshalRecords(records)
		if err != nil {
			return nil, err
		}
		uri, err := w.publisher.Publish(ctx, runID, data)
		if err != nil {
			return nil, fmt.Errorf("publishing records: %w", err)
		}
		slog.Info("Published detailed results", "location", uri)
		result.Published = uri
	}
	return result, nil
}
