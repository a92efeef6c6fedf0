package database

import (
	"context"

	"github.com/google/uuid"
)

// CaptureJournal records saved captures
type CaptureJournal interface {
	// Record stores a saved capture (replaces an existing record with the same ID)
	Record(ctx context.Context, rec CaptureRecord) error
	// Get retrieves a capture by ID, returns nil if not found
	Get(ctx context.Context, id uuid.UUID) (*CaptureRecord, error)
	// List returns the most recent captures, newest first
	List(ctx context.Context, limit int) ([]CaptureRecord, error)
	// ListByPerson returns the most recent captures whose people include name, newest first
	ListByPerson(ctx context.Context, name string, limit int) ([]CaptureRecord, error)
	// Count returns the total number of captures recorded
	Count(ctx context.Context) (int, error)
}
