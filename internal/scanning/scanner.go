package scanning

import (
	"github.com/zombor/grocery-receipts/internal/parsing"
)

// Fragment is one piece of text recognized on a receipt image
type Fragment struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Top        float64 `json:"top"` // vertical position, 0 is the top of the image
}

// Scanner defines the interface for whole-receipt extraction with a vision model
type Scanner interface {
	// ScanReceipt analyzes a receipt image/PDF and returns the purchased items
	ScanReceipt(imageData []byte, contentType string) ([]parsing.LineItem, error)
	// Close closes the scanner and releases resources
	Close() error
}

// TextRecognizer defines the interface for reading raw text off a receipt
type TextRecognizer interface {
	// RecognizeText returns the text fragments found on a receipt image/PDF
	RecognizeText(imageData []byte, contentType string) ([]Fragment, error)
	// Close closes the recognizer and releases resources
	Close() error
}
