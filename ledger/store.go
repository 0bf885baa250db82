// Package ledger serves the ledger gateway contract itself: a sheet of sale
// rows that can be listed, appended to, and trimmed by item name.
package ledger

import (
	"context"
	"errors"

	"stall/models"
)

var (
	ErrSheetNotFound  = errors.New("sheet not found")
	ErrColumnNotFound = errors.New("column not found")
	ErrNoMatch        = errors.New("no matching row")
)

// Columns is the header row of a freshly created sheet, in append order.
var Columns = []string{"timestamp", "jst", "name", "payment", "method"}

type Store interface {
	HasSheet(ctx context.Context, sheetURL, sheetName string) (bool, error)
	// Rows returns the sheet below its header, keyed by header names.
	Rows(ctx context.Context, sheetURL, sheetName string) ([]models.LedgerRow, error)
	Append(ctx context.Context, sheetURL, sheetName string, rec models.LedgerRecord) error
	// DeleteLastMatching removes the bottom-most row whose column equals value.
	DeleteLastMatching(ctx context.Context, sheetURL, sheetName, column, value string) error
}
