package postgres

import (
	"slices"
	"testing"
	"testing/fstest"
)

func TestEmbeddedMigrations(t *testing.T) {
	got, err := embeddedMigrations(migrationsFS)
	if err != nil {
		t.Fatalf("embeddedMigrations() error = %v", err)
	}
	want := []string{"001_captures.sql", "002_captures_people_idx.sql"}
	if !slices.Equal(got, want) {
		t.Errorf("embeddedMigrations() = %v, want %v", got, want)
	}
}

func TestEmbeddedMigrations_SortsAndFilters(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_later.sql":    {Data: []byte("SELECT 1")},
		"migrations/002_second.sql":   {Data: []byte("SELECT 1")},
		"migrations/README.md":        {Data: []byte("notes")},
		"migrations/001_first.sql":    {Data: []byte("SELECT 1")},
		"migrations/old/003_gone.sql": {Data: []byte("SELECT 1")},
	}
	got, err := embeddedMigrations(fsys)
	if err != nil {
		t.Fatalf("embeddedMigrations() error = %v", err)
	}
	want := []string{"001_first.sql", "002_second.sql", "010_later.sql"}
	if !slices.Equal(got, want) {
		t.Errorf("embeddedMigrations() = %v, want %v", got, want)
	}

	if _, err := embeddedMigrations(fstest.MapFS{}); err == nil {
		t.Error("embeddedMigrations() on empty fs error = nil")
	}
}

func TestDiffMigrations(t *testing.T) {
	embedded := []string{"001_a.sql", "002_b.sql", "003_c.sql"}

	tests := []struct {
		name        string
		applied     []string
		wantPending []string
		wantUnknown []string
	}{
		{name: "fresh database", wantPending: embedded},
		{name: "partially applied", applied: []string{"001_a.sql"}, wantPending: []string{"002_b.sql", "003_c.sql"}},
		{name: "up to date", applied: embedded},
		{name: "newer build ran", applied: []string{"001_a.sql", "002_b.sql", "003_c.sql", "004_d.sql"}, wantUnknown: []string{"004_d.sql"}},
		{name: "gap", applied: []string{"001_a.sql", "003_c.sql"}, wantPending: []string{"002_b.sql"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var applied []Migration
			for _, v := range tt.applied {
				applied = append(applied, Migration{Version: v})
			}
			pending, unknown := diffMigrations(embedded, applied)
			if !slices.Equal(pending, tt.wantPending) {
				t.Errorf("pending = %v, want %v", pending, tt.wantPending)
			}
			if !slices.Equal(unknown, tt.wantUnknown) {
				t.Errorf("unknown = %v, want %v", unknown, tt.wantUnknown)
			}
			status := SchemaStatus{Pending: pending}
			if got := status.UpToDate(); got != (len(tt.wantPending) == 0) {
				t.Errorf("UpToDate() = %v", got)
			}
		})
	}
}
