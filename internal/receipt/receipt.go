package receipt

import (
	"time"

	"github.com/zombor/grocery-receipts/internal/parsing"
)

// Extraction methods
const (
	MethodOCR = "ocr" // text recognition followed by the parsing pipeline
	MethodVLM = "vlm" // whole-receipt extraction by a vision model
)

// Upload statuses
const (
	StatusReview    = "review"
	StatusFailed    = "failed"
	StatusSubmitted = "submitted"
)

// Upload is one uploaded receipt image and the items extracted from it
type Upload struct {
	ID          string             `json:"id"`
	Filename    string             `json:"filename"`
	ContentType string             `json:"content_type"`
	Method      string             `json:"method"`
	Status      string             `json:"status"`
	Error       string             `json:"error,omitempty"` // why extraction failed
	Items       []parsing.LineItem `json:"items"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// HistoryEntry records one submission to the exporter
type HistoryEntry struct {
	Filename   string    `json:"filename"`
	Method     string    `json:"method"`
	Timestamp  time.Time `json:"timestamp"`
	ItemsCount int       `json:"items_count"`
}
