// Package memory is an in-process sheets.RowsWriter for tests and local runs.
package memory

import (
	"context"
	"sync"

	"finance/internal/sheets"
)

var _ sheets.RowsWriter = (*Sheet)(nil)

type Sheet struct {
	mu     sync.Mutex
	rows   [][]string
	writes int
}

func New() *Sheet {
	return &Sheet{}
}

func (s *Sheet) ReplaceRows(_ context.Context, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = copyRows(rows)
	s.writes++
	return nil
}

// Rows returns a copy of the last written rows.
func (s *Sheet) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRows(s.rows)
}

// Writes counts ReplaceRows calls.
func (s *Sheet) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func copyRows(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, r := range in {
		out[i] = append([]string(nil), r...)
	}
	return out
}
