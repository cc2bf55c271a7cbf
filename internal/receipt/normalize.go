package receipt

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-scanner/internal/scanning"
)

const (
	// vendorScanLines is how many leading text lines the vendor fallback looks at
	vendorScanLines = 5
	// minVendorLength rejects short fragments such as "#1" or "No"
	minVendorLength = 3
)

// junkHeaders are header lines that are never the vendor name
var junkHeaders = map[string]bool{
	"RECEIPT":     true,
	"INVOICE":     true,
	"BILL":        true,
	"TAX INVOICE": true,
	"CASH MEMO":   true,
	"THANK YOU":   true,
}

// discountKeywords mark an item as a discount regardless of its sign
var discountKeywords = []string{"discount", "coupon", "saving"}

// validationTolerance is the largest accepted gap between calculated and printed totals (exclusive)
var validationTolerance = decimal.New(1, -2)

// Normalize converts a raw analysis into a Record for sourceFile.
// It returns nil when the analysis contains no receipt document.
func Normalize(result *scanning.AnalyzeResult, sourceFile string) *Record {
	doc := result.Document()
	if doc == nil {
		return nil
	}

	record := &Record{
		SourceFile: sourceFile,
		Items:      make([]LineItem, 0, len(doc.Items)),
	}

	vendor, vendorConfidence := doc.VendorName.Get()
	record.VendorConfidence = Measured(vendorConfidence)
	if strings.TrimSpace(vendor) != "" {
		record.VendorName = &vendor
	} else if result.Content != "" {
		slog.Debug("Backend returned no vendor name, applying text heuristic", "file", sourceFile)
		if guess, ok := guessVendor(result.Content); ok {
			record.VendorName = &guess
			record.VendorConfidence = HeuristicGuess()
		}
	}

	record.Date = optionalString(doc.TransactionDate)
	record.Time = optionalString(doc.TransactionTime)
	record.Subtotal = optionalNumber(doc.Subtotal)
	record.Tax = optionalNumber(doc.TotalTax)
	record.Tip = optionalNumber(doc.Tip)
	record.Total = optionalNumber(doc.Total)

	discount := decimal.Zero
	for _, item := range doc.Items {
		line := LineItem{
			Description: optionalString(item.Description),
			Quantity:    1.0,
			Price:       0.0,
		}
		if item.TotalPrice.Found {
			line.Price = item.TotalPrice.Value
		}
		if item.Quantity.Found {
			line.Quantity = item.Quantity.Value
		}
		record.Items = append(record.Items, line)

		if isDiscount(line) {
			discount = discount.Add(decimal.NewFromFloat(line.Price).Abs())
		}
	}
	record.Discount = discount.InexactFloat64()
	record.Validation = validate(record.Subtotal, discount, record.Tax, record.Tip, record.Total)

	return record
}

// guessVendor picks the first plausible line from the top of the recognized text
func guessVendor(content string) (string, bool) {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == vendorScanLines {
			break
		}
	}

	for _, line := range lines {
		if junkHeaders[strings.ToUpper(line)] {
			continue
		}
		if utf8.RuneCountInString(line) < minVendorLength {
			continue
		}
		return line, true
	}
	return "", false
}

// isDiscount reports whether an item reduces the amount due
func isDiscount(item LineItem) bool {
	if item.Price < 0 {
		return true
	}
	if item.Description == nil {
		return false
	}
	desc := strings.ToLower(*item.Description)
	for _, keyword := range discountKeywords {
		if strings.Contains(desc, keyword) {
			return true
		}
	}
	return false
}

// validate recomputes the total; absent operands count as zero
func validate(subtotal *float64, discount decimal.Decimal, tax, tip, total *float64) Validation {
	calculated := orZero(subtotal).
		Sub(discount).
		Add(orZero(tax)).
		Add(orZero(tip)).
		Round(2)

	return Validation{
		CalculatedTotal: calculated.InexactFloat64(),
		Passed:          calculated.Sub(orZero(total)).Abs().LessThan(validationTolerance),
	}
}

func orZero(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}

func optionalString(f scanning.Field[string]) *string {
	if !f.Found || strings.TrimSpace(f.Value) == "" {
		return nil
	}
	v := f.Value
	return &v
}

func optionalNumber(f scanning.Field[float64]) *float64 {
	if !f.Found {
		return nil
	}
	v := f.Value
	return &v
}
