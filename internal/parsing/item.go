package parsing

const (
	// UnknownItem replaces an empty ingredient name
	UnknownItem = "Unknown Item"
	// DefaultQuantity is used when no quantity token was found
	DefaultQuantity = "1"
	// FallbackPrice replaces a price that could not be parsed
	FallbackPrice = "0.00"
)

// RawItem holds the fragments cut out of a receipt line before normalization
type RawItem struct {
	Date     string
	Name     string
	Quantity string
	Price    string
	Notes    string
}

// LineItem is a normalized purchased item
type LineItem struct {
	Date       string `json:"date"` // ISO 8601 format
	Ingredient string `json:"ingredient"`
	Quantity   string `json:"quantity"`
	Price      string `json:"price"` // two fraction digits, no currency symbol
	Notes      string `json:"notes"`
}
