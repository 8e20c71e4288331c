package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ledgerbook/internal/core"
	"ledgerbook/internal/sheets"
)

var _ sheets.ReportMirror = (*Store)(nil)

// Store is an in-process ReportMirror used when no spreadsheet is
// configured, and in tests.
type Store struct {
	mu     sync.Mutex
	tabs   map[string][][]interface{}
	writes int
}

func New() *Store {
	return &Store{tabs: make(map[string][][]interface{})}
}

// MirrorMonth stores the report rows and returns a synthetic reference.
func (s *Store) MirrorMonth(_ context.Context, report core.MonthReport) (string, error) {
	if err := core.ValidateMonth(report.Month); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[report.Month] = sheets.MonthValues(report)
	s.writes++
	return fmt.Sprintf("mem:%s:%d", report.Month, s.writes), nil
}

func (s *Store) MirroredMonths(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	months := make([]string, 0, len(s.tabs))
	for m := range s.tabs {
		months = append(months, m)
	}
	sort.Strings(months)
	return months, nil
}

func (s *Store) RemoveMonth(_ context.Context, month string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tabs, month)
	return nil
}

// Tab returns a copy of the rows mirrored for month.
func (s *Store) Tab(month string) ([][]interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tabs[month]
	if !ok {
		return nil, false
	}
	return append([][]interface{}(nil), rows...), true
}

// Writes reports how many times MirrorMonth succeeded.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
