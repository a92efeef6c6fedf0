// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/kozaktomas/facecam/internal/database"
)

// MockCaptureJournal is a mock implementation of database.CaptureJournal
type MockCaptureJournal struct {
	mu      sync.RWMutex
	records map[uuid.UUID]database.CaptureRecord

	// Error injection
	RecordError error
	GetError    error
	ListError   error
	CountError  error
}

var _ database.CaptureJournal = (*MockCaptureJournal)(nil)

// NewMockCaptureJournal creates a new empty mock journal
func NewMockCaptureJournal() *MockCaptureJournal {
	return &MockCaptureJournal{
		records: make(map[uuid.UUID]database.CaptureRecord),
	}
}

// Record stores a capture
func (m *MockCaptureJournal) Record(ctx context.Context, rec database.CaptureRecord) error {
	if m.RecordError != nil {
		return m.RecordError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return nil
}

// Get retrieves a capture by ID
func (m *MockCaptureJournal) Get(ctx context.Context, id uuid.UUID) (*database.CaptureRecord, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// List returns captures newest first
func (m *MockCaptureJournal) List(ctx context.Context, limit int) ([]database.CaptureRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.newest(limit, func(database.CaptureRecord) bool { return true }), nil
}

// ListByPerson returns captures showing name, newest first
func (m *MockCaptureJournal) ListByPerson(ctx context.Context, name string, limit int) ([]database.CaptureRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.newest(limit, func(rec database.CaptureRecord) bool {
		return slices.Contains(rec.People, name)
	}), nil
}

func (m *MockCaptureJournal) newest(limit int, keep func(database.CaptureRecord) bool) []database.CaptureRecord {
	if limit <= 0 {
		limit = database.DefaultListLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]database.CaptureRecord, 0, len(m.records))
	for _, rec := range m.records {
		if keep(rec) {
			records = append(records, rec)
		}
	}
	slices.SortFunc(records, func(a, b database.CaptureRecord) int {
		return b.SavedAt.Compare(a.SavedAt)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records
}

// Count returns the number of captures
func (m *MockCaptureJournal) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}
