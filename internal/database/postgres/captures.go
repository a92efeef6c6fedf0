package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/kozaktomas/facecam/internal/database"
)

// CaptureRepository provides PostgreSQL-backed capture journal storage
type CaptureRepository struct {
	pool *Pool
}

// NewCaptureRepository creates a new PostgreSQL capture repository
func NewCaptureRepository(pool *Pool) *CaptureRepository {
	return &CaptureRepository{pool: pool}
}

var _ database.CaptureJournal = (*CaptureRepository)(nil)

// Record stores a saved capture
func (r *CaptureRepository) Record(ctx context.Context, rec database.CaptureRecord) error {
	faces, err := json.Marshal(rec.Faces)
	if err != nil {
		return fmt.Errorf("marshal faces: %w", err)
	}
	people := rec.People
	if people == nil {
		people = []string{}
	}

	query := `
		INSERT INTO captures (id, filename, storage_path, faces, people, face_count, captured_at, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			filename = EXCLUDED.filename,
			storage_path = EXCLUDED.storage_path,
			faces = EXCLUDED.faces,
			people = EXCLUDED.people,
			face_count = EXCLUDED.face_count,
			captured_at = EXCLUDED.captured_at,
			saved_at = EXCLUDED.saved_at
	`

	_, err = r.pool.Exec(ctx, query,
		rec.ID, rec.Filename, rec.StoragePath, faces, pq.Array(people),
		rec.FaceCount(), rec.CapturedAt, rec.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("record capture: %w", err)
	}
	return nil
}

// Get retrieves a capture by ID, returns nil if not found
func (r *CaptureRepository) Get(ctx context.Context, id uuid.UUID) (*database.CaptureRecord, error) {
	query := `
		SELECT id, filename, storage_path, faces, people, captured_at, saved_at
		FROM captures
		WHERE id = $1
	`

	rec, err := scanCapture(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get capture: %w", err)
	}
	return rec, nil
}

// List returns the most recent captures, newest first
func (r *CaptureRepository) List(ctx context.Context, limit int) ([]database.CaptureRecord, error) {
	if limit <= 0 {
		limit = database.DefaultListLimit
	}

	query := `
		SELECT id, filename, storage_path, faces, people, captured_at, saved_at
		FROM captures
		ORDER BY saved_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query captures: %w", err)
	}
	return scanCaptures(rows)
}

// ListByPerson returns the most recent captures showing the named person, newest first
func (r *CaptureRepository) ListByPerson(ctx context.Context, name string, limit int) ([]database.CaptureRecord, error) {
	if limit <= 0 {
		limit = database.DefaultListLimit
	}

	query := `
		SELECT id, filename, storage_path, faces, people, captured_at, saved_at
		FROM captures
		WHERE people @> ARRAY[$1::TEXT]
		ORDER BY saved_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, name, limit)
	if err != nil {
		return nil, fmt.Errorf("query captures by person: %w", err)
	}
	return scanCaptures(rows)
}

func scanCaptures(rows *sql.Rows) ([]database.CaptureRecord, error) {
	defer rows.Close()

	var records []database.CaptureRecord
	for rows.Next() {
		rec, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate captures: %w", err)
	}
	return records, nil
}

// Count returns the total number of captures recorded
func (r *CaptureRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM captures").Scan(&count); err != nil {
		return 0, fmt.Errorf("count captures: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCapture(row rowScanner) (*database.CaptureRecord, error) {
	var rec database.CaptureRecord
	var faces []byte
	if err := row.Scan(
		&rec.ID,
		&rec.Filename,
		&rec.StoragePath,
		&faces,
		pq.Array(&rec.People),
		&rec.CapturedAt,
		&rec.SavedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(faces, &rec.Faces); err != nil {
		return nil, fmt.Errorf("unmarshal faces: %w", err)
	}
	return &rec, nil
}
