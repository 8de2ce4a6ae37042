// Package csvexport renders the transaction collection as CSV text.
//
// The layout is fixed: the description column is always quoted with inner
// quotes doubled, every other column is written bare. encoding/csv only
// quotes fields that need it, so rows are assembled by hand.
package csvexport

import (
	"fmt"
	"strings"
	"time"

	"finance/internal/core"
)

// ContentType is the MIME type of an export.
const ContentType = "text/csv; charset=utf-8"

// Header is the first row of every export.
var Header = []string{"Date", "Type", "Description", "Amount"}

// Export renders txs in the order given. It returns false, and no bytes,
// for an empty collection.
func Export(txs []core.Transaction) ([]byte, bool) {
	if len(txs) == 0 {
		return nil, false
	}
	lines := make([]string, 0, len(txs)+1)
	lines = append(lines, strings.Join(Header, ","))
	for _, tx := range txs {
		lines = append(lines, strings.Join([]string{
			core.CalendarDateString(tx.Date),
			tx.Type.String(),
			quote(tx.Description),
			core.FormatAmount(tx.Amount),
		}, ","))
	}
	return []byte(strings.Join(lines, "\n")), true
}

// Rows returns the same cells Export writes, header first and without
// quoting, for destinations that take a grid rather than text.
func Rows(txs []core.Transaction) [][]string {
	rows := make([][]string, 0, len(txs)+1)
	rows = append(rows, append([]string(nil), Header...))
	for _, tx := range txs {
		rows = append(rows, []string{
			core.CalendarDateString(tx.Date),
			tx.Type.String(),
			tx.Description,
			core.FormatAmount(tx.Amount),
		})
	}
	return rows
}

// Filename stamps the export with the UTC date of now.
func Filename(now time.Time) string {
	return fmt.Sprintf("transactions_%s.csv", core.CalendarDateString(now))
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
