package rowstore

import (
	"context"
	"sync"

	"ledgerbot/pkg/errors"
)

// Compile-time check
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store used in tests and when no database
// is configured. Contents do not survive a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	rows []Row
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds a data row and returns its assigned row number
func (s *MemoryStore) Append(ctx context.Context, row Row) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = append(s.rows, row.Clone())
	return HeaderRowNumber + len(s.rows), nil
}

// ReadAll returns every data row in sheet order
func (s *MemoryStore) ReadAll(ctx context.Context) ([]NumberedRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]NumberedRow, 0, len(s.rows))
	for i, row := range s.rows {
		out = append(out, NumberedRow{
			Number: HeaderRowNumber + i + 1,
			Values: row.Clone(),
		})
	}
	return out, nil
}

// Update sets one cell
func (s *MemoryStore) Update(ctx context.Context, rowNumber int, column, value string) error {
	if !ValidColumn(column) {
		return errors.Wrapf(errors.ErrUnknownColumn, "column %q", column)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := rowNumber - HeaderRowNumber - 1
	if idx < 0 || idx >= len(s.rows) {
		return errors.Wrapf(errors.ErrRowOutOfRange, "row %d", rowNumber)
	}
	s.rows[idx][column] = value
	return nil
}

// Read returns one cell
func (s *MemoryStore) Read(ctx context.Context, rowNumber int, column string) (string, error) {
	if !ValidColumn(column) {
		return "", errors.Wrapf(errors.ErrUnknownColumn, "column %q", column)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := rowNumber - HeaderRowNumber - 1
	if idx < 0 || idx >= len(s.rows) {
		return "", errors.Wrapf(errors.ErrRowOutOfRange, "row %d", rowNumber)
	}
	return s.rows[idx][column], nil
}
