package memory

import (
	"context"
	"fmt"
	"sync"

	"financas/internal/core"
	ports "financas/internal/sheets"
)

var _ ports.SummaryWriter = (*Store)(nil)

// Store keeps exported summaries in memory. Used when no spreadsheet is
// configured and in tests.
type Store struct {
	mu     sync.Mutex
	writes int
	rows   [][]any
}

func New() *Store {
	return &Store{}
}

// WriteMonthlySummary replaces the stored table and returns a synthetic
// range reference.
func (s *Store) WriteMonthlySummary(_ context.Context, rows []core.MonthBucket) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = ports.SummaryRows(rows)
	s.writes++
	return fmt.Sprintf("mem:%d", s.writes), nil
}

// Rows returns a copy of the last written table, header included.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}

func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
