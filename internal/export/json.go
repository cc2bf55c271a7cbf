package export

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zombor/receipt-scanner/internal/receipt"
)

// DetailStore persists the full-fidelity records of a run
type DetailStore interface {
	// Put replaces the store's contents with records
	Put(ctx context.Context, records []*receipt.Record) error
	// Location describes where the records went, for the completion report
	Location() string
}

// JSONFile writes the records as an indented JSON array, overwriting the previous run
type JSONFile struct {
	dir      *Dir
	filename string
}

// NewJSONFile creates a JSONFile writing <base>.json inside dir
func NewJSONFile(dir *Dir, base string) *JSONFile {
	return &JSONFile{dir: dir, filename: base + ".json"}
}

// Put writes records to the JSON file
func (j *JSONFile) Put(_ context.Context, records []*receipt.Record) error {
	data, err := marshalRecords(records)
	if err != nil {
		return err
	}
	if _, err := j.dir.Save(j.filename, data); err != nil {
		return fmt.Errorf("saving %s: %w", j.filename, err)
	}
	return nil
}

// Location returns the JSON file path
func (j *JSONFile) Location() string {
	return j.dir.Path(j.filename)
}

func marshalRecords(records []*receipt.Record) ([]byte, error) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling records: %w", err)
	}
	return data, nil
}
