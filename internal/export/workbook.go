package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/zombor/grocery-receipts/internal/parsing"
)

// DefaultWorksheet is the worksheet rows are appended to
const DefaultWorksheet = "Groceries"

// Workbook implements Exporter by appending to a local XLSX file
type Workbook struct {
	path  string
	sheet string
	mu    sync.Mutex
}

// NewWorkbook creates a Workbook exporter; the file is created on first Append
func NewWorkbook(path, sheet string) (*Workbook, error) {
	if path == "" {
		return nil, fmt.Errorf("workbook path is required")
	}
	if sheet == "" {
		sheet = DefaultWorksheet
	}
	return &Workbook{path: path, sheet: sheet}, nil
}

// Append writes one row per item after the last used row
func (w *Workbook) Append(ctx context.Context, items []parsing.LineItem) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open()
	if err != nil {
		return 0, err
	}
	defer f.Close()

	rows, err := f.GetRows(w.sheet)
	if err != nil {
		return 0, fmt.Errorf("reading rows: %w", err)
	}
	next := len(rows) + 1
	if len(rows) == 0 {
		if err := w.writeRow(f, 1, headerRow()); err != nil {
			return 0, err
		}
		next = 2
	}

	for _, item := range items {
		if err := w.writeRow(f, next, rowFor(item)); err != nil {
			return 0, err
		}
		next++
	}

	if err := f.SaveAs(w.path); err != nil {
		return 0, fmt.Errorf("saving workbook: %w", err)
	}

	slog.Info("Appended rows to workbook", "path", w.path, "sheet", w.sheet, "rows", len(items))
	return len(items), nil
}

// open loads the workbook, creating it and the worksheet when missing
func (w *Workbook) open() (*excelize.File, error) {
	var f *excelize.File
	if _, err := os.Stat(w.path); errors.Is(err, fs.ErrNotExist) {
		f = excelize.NewFile()
		// A new file starts with "Sheet1"; rename it rather than leave an empty sheet behind
		if err := f.SetSheetName(f.GetSheetName(0), w.sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("naming worksheet: %w", err)
		}
		_ = f.SetColWidth(w.sheet, "A", "A", 12) // date
		_ = f.SetColWidth(w.sheet, "B", "B", 28) // ingredient
		_ = f.SetColWidth(w.sheet, "C", "D", 14) // meal, shelf life
	} else if err != nil {
		return nil, fmt.Errorf("checking workbook: %w", err)
	} else {
		f, err = excelize.OpenFile(w.path)
		if err != nil {
			return nil, fmt.Errorf("opening workbook: %w", err)
		}
	}

	if index, err := f.GetSheetIndex(w.sheet); err != nil || index == -1 {
		if _, err := f.NewSheet(w.sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("creating worksheet: %w", err)
		}
	}
	return f, nil
}

func (w *Workbook) writeRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("resolving cell: %w", err)
	}
	if err := f.SetSheetRow(w.sheet, cell, &values); err != nil {
		return fmt.Errorf("writing row %d: %w", row, err)
	}
	return nil
}
