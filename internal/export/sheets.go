package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/zombor/grocery-receipts/internal/parsing"
)

const (
	// DefaultSheetRange covers the six exported columns of the first sheet
	DefaultSheetRange = "Sheet1!A:F"

	placeholderSpreadsheetID = "your_google_sheets_id_here"
	rawInput                 = "RAW"
)

// Sheets implements Exporter using the Google Sheets API
type Sheets struct {
	service       *sheets.Service
	spreadsheetID string
	rangeName     string
}

// NewSheets creates a Sheets exporter. Credentials and endpoint come from opts,
// e.g. option.WithCredentialsFile.
func NewSheets(ctx context.Context, spreadsheetID, rangeName string, opts ...option.ClientOption) (*Sheets, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" || spreadsheetID == placeholderSpreadsheetID {
		return nil, fmt.Errorf("spreadsheet ID not configured (current value: %q)", spreadsheetID)
	}
	if rangeName == "" {
		rangeName = DefaultSheetRange
	}

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &Sheets{
		service:       service,
		spreadsheetID: spreadsheetID,
		rangeName:     rangeName,
	}, nil
}

// Append appends one row per item below the existing data
func (s *Sheets) Append(ctx context.Context, items []parsing.LineItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	values := make([][]interface{}, 0, len(items))
	for _, item := range items {
		values = append(values, rowFor(item))
	}

	resp, err := s.service.Spreadsheets.Values.
		Append(s.spreadsheetID, s.rangeName, &sheets.ValueRange{Values: values}).
		ValueInputOption(rawInput).
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("appending rows: %w", err)
	}

	updated := 0
	if resp.Updates != nil {
		updated = int(resp.Updates.UpdatedRows)
	}
	slog.Info("Appended rows to spreadsheet", "spreadsheet_id", s.spreadsheetID, "rows", updated)
	return updated, nil
}

// EnsureHeaders writes the header row when the first row is empty.
// It reports whether headers were written.
func (s *Sheets) EnsureHeaders(ctx context.Context) (bool, error) {
	headerRange := s.headerRange()

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("reading header row: %w", err)
	}
	if len(resp.Values) > 0 {
		return false, nil
	}

	_, err = s.service.Spreadsheets.Values.
		Update(s.spreadsheetID, headerRange, &sheets.ValueRange{Values: [][]interface{}{headerRow()}}).
		ValueInputOption(rawInput).
		Context(ctx).
		Do()
	if err != nil {
		return false, fmt.Errorf("writing header row: %w", err)
	}
	return true, nil
}

// headerRange is row 1 of the sheet named in rangeName
func (s *Sheets) headerRange() string {
	sheet := "Sheet1"
	if i := strings.Index(s.rangeName, "!"); i > 0 {
		sheet = s.rangeName[:i]
	}
	return fmt.Sprintf("%s!A1:F1", sheet)
}
