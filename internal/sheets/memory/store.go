// Package memory keeps the export snapshot in process. It backs the sync
// worker's dry-run mode and tests.
package memory

import (
	"context"
	"sync"

	ports "bountytracker/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	header []string
	rows   [][]string
	writes int
}

var _ ports.ExportWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// ReplaceRows stores copies of header and rows.
func (s *Store) ReplaceRows(_ context.Context, header []string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.header = append([]string(nil), header...)
	s.rows = make([][]string, len(rows))
	for i, r := range rows {
		s.rows[i] = append([]string(nil), r...)
	}
	s.writes++
	return nil
}

// Snapshot returns the last written header and rows.
func (s *Store) Snapshot() ([]string, [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([][]string, len(s.rows))
	for i, r := range s.rows {
		rows[i] = append([]string(nil), r...)
	}
	return append([]string(nil), s.header...), rows
}

// Writes counts ReplaceRows calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
