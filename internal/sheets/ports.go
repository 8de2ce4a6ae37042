// Package sheets defines the spreadsheet mirror the sync worker writes to.
package sheets

import "context"

// RowsWriter replaces the whole content of a sheet with rows. The first row
// is the header.
type RowsWriter interface {
	ReplaceRows(ctx context.Context, rows [][]string) error
}
