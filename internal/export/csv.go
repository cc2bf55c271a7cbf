package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/zombor/receipt-scanner/internal/receipt"
)

// Columns is the header of the summary table. Items are left out; the validation
// fields are hoisted to the top level.
var Columns = []string{
	"source_file",
	"vendor_name",
	"vendor_confidence",
	"date",
	"time",
	"subtotal",
	"tax",
	"tip",
	"discount",
	"total",
	"calculated_total",
	"passed",
}

// Flatten converts a record into one summary row keyed by column name.
// Absent values become empty cells.
func Flatten(r *receipt.Record) map[string]string {
	return map[string]string{
		"source_file":       r.SourceFile,
		"vendor_name":       formatString(r.VendorName),
		"vendor_confidence": r.VendorConfidence.String(),
		"date":              formatString(r.Date),
		"time":              formatString(r.Time),
		"subtotal":          formatNumber(r.Subtotal),
		"tax":               formatNumber(r.Tax),
		"tip":               formatNumber(r.Tip),
		"discount":          strconv.FormatFloat(r.Discount, 'f', -1, 64),
		"total":             formatNumber(r.Total),
		"calculated_total":  strconv.FormatFloat(r.Validation.CalculatedTotal, 'f', -1, 64),
		"passed":            strconv.FormatBool(r.Validation.Passed),
	}
}

// RecordFromRow rebuilds the scalar part of a record from a summary row.
// Items are not part of the summary, so the result has none.
func RecordFromRow(row map[string]string) (*receipt.Record, error) {
	var err error
	r := &receipt.Record{
		SourceFile: row["source_file"],
		VendorName: parseString(row["vendor_name"]),
		Date:       parseString(row["date"]),
		Time:       parseString(row["time"]),
	}

	if r.VendorConfidence, err = receipt.ParseConfidence(row["vendor_confidence"]); err != nil {
		return nil, err
	}
	numbers := []struct {
		column string
		dst    **float64
	}{
		{"subtotal", &r.Subtotal},
		{"tax", &r.Tax},
		{"tip", &r.Tip},
		{"total", &r.Total},
	}
	for _, n := range numbers {
		if *n.dst, err = parseNumber(row[n.column]); err != nil {
			return nil, fmt.Errorf("column %s: %w", n.column, err)
		}
	}

	if r.Discount, err = parseRequiredNumber(row["discount"]); err != nil {
		return nil, fmt.Errorf("column discount: %w", err)
	}
	if r.Validation.CalculatedTotal, err = parseRequiredNumber(row["calculated_total"]); err != nil {
		return nil, fmt.Errorf("column calculated_total: %w", err)
	}
	if r.Validation.Passed, err = strconv.ParseBool(row["passed"]); err != nil {
		return nil, fmt.Errorf("column passed: %w", err)
	}
	return r, nil
}

// SummaryTable appends flattened rows to <base>.csv
type SummaryTable struct {
	dir      *Dir
	filename string
}

// NewSummaryTable creates a SummaryTable writing <base>.csv inside dir
func NewSummaryTable(dir *Dir, base string) *SummaryTable {
	return &SummaryTable{dir: dir, filename: base + ".csv"}
}

// Append adds one row per record. The header is written only when the file is new.
func (s *SummaryTable) Append(records []*receipt.Record) error {
	f, fresh, err := s.dir.OpenAppend(s.filename)
	if err != nil {
		return err
	}

	if err := writeRows(csv.NewWriter(f), fresh, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing summary: %w", err)
	}
	return nil
}

// writeRows writes one row per record, preceded by the header when header is set
func writeRows(w *csv.Writer, header bool, records []*receipt.Record) error {
	if header {
		if err := w.Write(Columns); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for _, record := range records {
		row := Flatten(record)
		values := make([]string, len(Columns))
		for i, column := range Columns {
			values[i] = row[column]
		}
		if err := w.Write(values); err != nil {
			return fmt.Errorf("writing row for %s: %w", record.SourceFile, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing summary: %w", err)
	}
	return nil
}

// Location returns the CSV file path
func (s *SummaryTable) Location() string {
	return s.dir.Path(s.filename)
}

// ReadSummary loads every row of a summary table, keyed by its header
func ReadSummary(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening summary: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	var rows []map[string]string
	for {
		values, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, column := range header {
			if i < len(values) {
				row[column] = values[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func formatString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseNumber(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseRequiredNumber(s string) (float64, error) {
	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, fmt.Errorf("value is required")
	}
	return *v, nil
}
