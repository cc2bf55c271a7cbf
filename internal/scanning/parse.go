package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// llmField is one field of the JSON reply requested by receiptScanPrompt
type llmField[T any] struct {
	Value      *T       `json:"value"`
	Confidence *float64 `json:"confidence"`
}

func (f *llmField[T]) toField() Field[T] {
	if f == nil || f.Value == nil {
		return Field[T]{}
	}
	confidence := 0.0
	if f.Confidence != nil {
		confidence = *f.Confidence
	}
	return Found(*f.Value, confidence)
}

type llmItem struct {
	Description *llmField[string]  `json:"description"`
	TotalPrice  *llmField[float64] `json:"total_price"`
	Quantity    *llmField[float64] `json:"quantity"`
}

type llmReceipt struct {
	ReceiptFound    *bool              `json:"receipt_found"`
	VendorName      *llmField[string]  `json:"vendor_name"`
	TransactionDate *llmField[string]  `json:"transaction_date"`
	TransactionTime *llmField[string]  `json:"transaction_time"`
	Subtotal        *llmField[float64] `json:"subtotal"`
	TotalTax        *llmField[float64] `json:"total_tax"`
	Tip             *llmField[float64] `json:"tip"`
	Total           *llmField[float64] `json:"total"`
	Items           []llmItem          `json:"items"`
	Content         string             `json:"content"`
}

// parseFieldSetJSON parses the JSON reply of an LLM backend into an AnalyzeResult
func parseFieldSetJSON(text string, modelID string) (*AnalyzeResult, error) {
	// Remove markdown code blocks if present
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var data llmReceipt
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	result := &AnalyzeResult{
		ModelID: modelID,
		Content: data.Content,
	}
	if data.ReceiptFound != nil && !*data.ReceiptFound {
		return result, nil
	}

	set := FieldSet{
		VendorName:      trimmed(data.VendorName.toField()),
		TransactionDate: normalizeDate(data.TransactionDate.toField()),
		TransactionTime: trimmed(data.TransactionTime.toField()),
		Subtotal:        data.Subtotal.toField(),
		TotalTax:        data.TotalTax.toField(),
		Tip:             data.Tip.toField(),
		Total:           data.Total.toField(),
	}
	for _, item := range data.Items {
		set.Items = append(set.Items, Item{
			Description: trimmed(item.Description.toField()),
			TotalPrice:  item.TotalPrice.toField(),
			Quantity:    item.Quantity.toField(),
		})
	}
	result.Documents = []FieldSet{set}

	return result, nil
}

// trimmed drops blank strings so they count as missing
func trimmed(f Field[string]) Field[string] {
	if !f.Found {
		return f
	}
	f.Value = strings.TrimSpace(f.Value)
	if f.Value == "" {
		return Field[string]{}
	}
	return f
}

// normalizeDate rewrites common date layouts to YYYY-MM-DD, leaving unknown layouts untouched
func normalizeDate(f Field[string]) Field[string] {
	f = trimmed(f)
	if !f.Found {
		return f
	}
	formats := []string{
		"2006-01-02",
		"2006/01/02",
		"01/02/2006",
		"02-01-2006",
		"January 2, 2006",
		"Jan 2, 2006",
	}
	for _, format := range formats {
		if d, err := time.Parse(format, f.Value); err == nil {
			f.Value = d.Format("2006-01-02")
			return f
		}
	}
	return f
}
