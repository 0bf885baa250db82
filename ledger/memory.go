package ledger

import (
	"context"
	"sync"

	"stall/models"
)

type sheetKey struct {
	url  string
	name string
}

type sheet struct {
	header []string
	rows   [][]any
}

// MemoryStore keeps sheets in process memory, laid out like a spreadsheet.
type MemoryStore struct {
	mu     sync.RWMutex
	sheets map[sheetKey]*sheet
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sheets: make(map[sheetKey]*sheet)}
}

// EnsureSheet creates the sheet with the default header if it is missing.
func (s *MemoryStore) EnsureSheet(ctx context.Context, sheetURL, sheetName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sheetKey{sheetURL, sheetName}
	if _, ok := s.sheets[key]; !ok {
		s.sheets[key] = &sheet{header: append([]string(nil), Columns...)}
	}
	return nil
}

// AddSheet creates or replaces a sheet with a custom header.
func (s *MemoryStore) AddSheet(sheetURL, sheetName string, header []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[sheetKey{sheetURL, sheetName}] = &sheet{header: append([]string(nil), header...)}
}

func (s *MemoryStore) HasSheet(ctx context.Context, sheetURL, sheetName string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sheets[sheetKey{sheetURL, sheetName}]
	return ok, nil
}

func (s *MemoryStore) Rows(ctx context.Context, sheetURL, sheetName string) ([]models.LedgerRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.sheets[sheetKey{sheetURL, sheetName}]
	if !ok {
		return nil, ErrSheetNotFound
	}

	out := make([]models.LedgerRow, 0, len(sh.rows))
	for _, r := range sh.rows {
		row := make(models.LedgerRow, len(sh.header))
		for i, h := range sh.header {
			if i < len(r) {
				row[h] = r[i]
			} else {
				row[h] = ""
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, sheetURL, sheetName string, rec models.LedgerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.sheets[sheetKey{sheetURL, sheetName}]
	if !ok {
		return ErrSheetNotFound
	}
	sh.rows = append(sh.rows, []any{rec.Timestamp, rec.JST, rec.Name, rec.Payment, rec.Method})
	return nil
}

func (s *MemoryStore) DeleteLastMatching(ctx context.Context, sheetURL, sheetName, column, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.sheets[sheetKey{sheetURL, sheetName}]
	if !ok {
		return ErrSheetNotFound
	}

	col := -1
	for i, h := range sh.header {
		if h == column {
			col = i
			break
		}
	}
	if col < 0 {
		return ErrColumnNotFound
	}

	for i := len(sh.rows) - 1; i >= 0; i-- {
		if col < len(sh.rows[i]) && sh.rows[i][col] == value {
			sh.rows = append(sh.rows[:i:i], sh.rows[i+1:]...)
			return nil
		}
	}
	return ErrNoMatch
}
