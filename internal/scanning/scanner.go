package scanning

import "context"

// ReceiptModelID is the document model every backend is asked to apply
const ReceiptModelID = "prebuilt-receipt"

// Field is a single extracted value together with the backend's confidence in it.
// Found is false when the backend returned nothing for the field.
type Field[T any] struct {
	Value      T
	Confidence float64
	Found      bool
}

// Found builds a present field
func Found[T any](value T, confidence float64) Field[T] {
	return Field[T]{Value: value, Confidence: confidence, Found: true}
}

// Get returns the value and confidence, or the zero value and 0 when the field is absent
func (f Field[T]) Get() (T, float64) {
	if !f.Found {
		var zero T
		return zero, 0
	}
	return f.Value, f.Confidence
}

// Item is one line of a receipt's item list
type Item struct {
	Description Field[string]
	TotalPrice  Field[float64]
	Quantity    Field[float64]
}

// FieldSet holds the receipt fields the backend knows how to extract
type FieldSet struct {
	VendorName      Field[string]
	TransactionDate Field[string]
	TransactionTime Field[string]
	Subtotal        Field[float64]
	TotalTax        Field[float64]
	Tip             Field[float64]
	Total           Field[float64]
	Items           []Item
}

// AnalyzeResult is the raw response for one analyzed image
type AnalyzeResult struct {
	ModelID   string
	Content   string // full recognized text
	Documents []FieldSet
}

// Document returns the first detected receipt, or nil when the backend found none
func (r *AnalyzeResult) Document() *FieldSet {
	if r == nil || len(r.Documents) == 0 {
		return nil
	}
	return &r.Documents[0]
}

// Backend defines a remote document-understanding service
type Backend interface {
	// Analyze extracts receipt fields from a single image
	Analyze(ctx context.Context, imageData []byte, contentType string) (*AnalyzeResult, error)
	// Close releases the backend's connections
	Close() error
}
