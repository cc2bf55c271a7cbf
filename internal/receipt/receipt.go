package receipt

// LineItem is one purchased line of a receipt
type LineItem struct {
	Description *string `json:"description"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
}

// Validation is the arithmetic cross-check of a receipt
type Validation struct {
	CalculatedTotal float64 `json:"calculated_total"`
	Passed          bool    `json:"passed"`
}

// Record is the normalized result for one receipt image.
// Monetary fields the backend did not return are nil; Discount and Validation are always set.
type Record struct {
	SourceFile       string     `json:"source_file"`
	VendorName       *string    `json:"vendor_name"`
	VendorConfidence Confidence `json:"vendor_confidence"`
	Date             *string    `json:"date"`
	Time             *string    `json:"time"`
	Subtotal         *float64   `json:"subtotal"`
	Tax              *float64   `json:"tax"`
	Tip              *float64   `json:"tip"`
	Discount         float64    `json:"discount"`
	Total            *float64   `json:"total"`
	Items            []LineItem `json:"items"`
	Validation       Validation `json:"validation"`
}
