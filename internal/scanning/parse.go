package scanning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zombor/grocery-receipts/internal/parsing"
)

// DefaultMinConfidence is the threshold below which recognized fragments are dropped
const DefaultMinConfidence = 0.5

// dateFormats are tried in order when a model returns a non-ISO date
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
}

// priceNormalizer is read-only after construction and shared by all scanners
var priceNormalizer = parsing.NewNormalizer(parsing.DefaultVocabulary())

// flexString accepts both JSON strings and numbers
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

// scannedItem mirrors one element of the array returned for itemsPrompt.
// encoding/json matches keys case-insensitively, so "date" and "Date" both work.
type scannedItem struct {
	Date       string     `json:"Date"`
	Ingredient string     `json:"Ingredient"`
	Quantity   flexString `json:"Quantity"`
	Price      flexString `json:"Price"`
	Notes      string     `json:"Notes"`
}

// extractJSONArray strips markdown fences and returns the outermost JSON array
func extractJSONArray(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "[")
	if startIdx == -1 {
		return "", fmt.Errorf("no JSON array found in response")
	}
	endIdx := strings.LastIndex(text, "]")
	if endIdx == -1 || endIdx < startIdx {
		return "", fmt.Errorf("invalid JSON array in response")
	}
	return text[startIdx : endIdx+1], nil
}

// parseItemsJSON parses the item list returned by a vision model
func parseItemsJSON(text string) ([]parsing.LineItem, error) {
	text, err := extractJSONArray(text)
	if err != nil {
		return nil, err
	}

	var scanned []scannedItem
	if err := json.Unmarshal([]byte(text), &scanned); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	items := make([]parsing.LineItem, 0, len(scanned))
	for _, s := range scanned {
		items = append(items, parsing.LineItem{
			Date:       normalizeDate(s.Date),
			Ingredient: strings.TrimSpace(s.Ingredient),
			Quantity:   strings.TrimSpace(string(s.Quantity)),
			Price:      formatPrice(string(s.Price)),
			Notes:      strings.TrimSpace(s.Notes),
		})
	}
	return items, nil
}

// parseFragmentsJSON parses the line list returned for fragmentsPrompt
func parseFragmentsJSON(text string) ([]Fragment, error) {
	text, err := extractJSONArray(text)
	if err != nil {
		return nil, err
	}

	var fragments []Fragment
	if err := json.Unmarshal([]byte(text), &fragments); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}
	return fragments, nil
}

// normalizeDate returns an ISO 8601 date, falling back to today
func normalizeDate(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Now().Format("2006-01-02")
	}
	for _, format := range dateFormats {
		if d, err := time.Parse(format, date); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return time.Now().Format("2006-01-02")
}

// formatPrice gives model prices the same shape the pipeline emits
func formatPrice(price string) string {
	return priceNormalizer.Price(price)
}

// Lines turns recognized fragments into ordered pipeline input.
// Fragments at or below minConfidence and empty fragments are dropped,
// the rest are sorted top to bottom.
func Lines(fragments []Fragment, minConfidence float64) []string {
	kept := make([]Fragment, 0, len(fragments))
	for _, f := range fragments {
		f.Text = strings.TrimSpace(f.Text)
		if f.Text == "" || f.Confidence <= minConfidence {
			continue
		}
		kept = append(kept, f)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Top < kept[j].Top
	})

	lines := make([]string, len(kept))
	for i, f := range kept {
		lines[i] = f.Text
	}
	return lines
}
