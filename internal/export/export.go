// Package export appends reviewed line items to a tabular store.
package export

import (
	"context"

	"github.com/zombor/grocery-receipts/internal/parsing"
)

// Headers names the columns every exporter writes, in order.
// Meal and Shelf Life are filled in by hand later.
var Headers = []string{"Date", "Ingredient", "Meal", "Shelf Life", "Price", "Quantity"}

// Exporter defines the interface for appending items as rows
type Exporter interface {
	// Append writes one row per item and returns the number of rows written
	Append(ctx context.Context, items []parsing.LineItem) (int, error)
}

// rowFor lays an item out in Headers order
func rowFor(item parsing.LineItem) []interface{} {
	return []interface{}{
		item.Date,
		item.Ingredient,
		"", // Meal
		"", // Shelf Life
		item.Price,
		item.Quantity,
	}
}

func headerRow() []interface{} {
	row := make([]interface{}, len(Headers))
	for i, h := range Headers {
		row[i] = h
	}
	return row
}
