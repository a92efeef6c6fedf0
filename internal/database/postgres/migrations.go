package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Migration is one schema version recorded in schema_migrations.
type Migration struct {
	Version   string
	AppliedAt time.Time
}

// SchemaStatus compares the embedded migrations with what the database has
// recorded.
type SchemaStatus struct {
	Applied []Migration
	Pending []string
	// Unknown lists versions recorded in the database that this build does
	// not embed, e.g. after a downgrade.
	Unknown []string
}

// UpToDate reports whether every embedded migration has been applied.
func (s SchemaStatus) UpToDate() bool {
	return len(s.Pending) == 0
}

// embeddedMigrations lists the SQL files in apply order.
func embeddedMigrations(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("could not read embedded migrations: %w", err)
	}
	var versions []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			versions = append(versions, e.Name())
		}
	}
	slices.Sort(versions)
	return versions, nil
}

// diffMigrations splits the embedded versions into pending ones and finds
// applied versions missing from the build.
func diffMigrations(embedded []string, applied []Migration) (pending, unknown []string) {
	done := make(map[string]bool, len(applied))
	for _, m := range applied {
		done[m.Version] = true
	}
	for _, v := range embedded {
		if !done[v] {
			pending = append(pending, v)
		}
	}
	for _, m := range applied {
		if !slices.Contains(embedded, m.Version) {
			unknown = append(unknown, m.Version)
		}
	}
	return pending, unknown
}

func (p *Pool) ensureMigrationsTable(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("could not create schema_migrations: %w", err)
	}
	return nil
}

// AppliedMigrations returns the recorded schema versions, oldest first.
func (p *Pool) AppliedMigrations(ctx context.Context) ([]Migration, error) {
	if err := p.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("could not query schema_migrations: %w", err)
	}
	defer rows.Close()

	var applied []Migration
	for rows.Next() {
		var m Migration
		if err := rows.Scan(&m.Version, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("could not scan migration: %w", err)
		}
		applied = append(applied, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate migrations: %w", err)
	}
	return applied, nil
}

// Status reports applied, pending and unknown schema versions.
func (p *Pool) Status(ctx context.Context) (SchemaStatus, error) {
	applied, err := p.AppliedMigrations(ctx)
	if err != nil {
		return SchemaStatus{}, err
	}
	embedded, err := embeddedMigrations(migrationsFS)
	if err != nil {
		return SchemaStatus{}, err
	}
	pending, unknown := diffMigrations(embedded, applied)
	return SchemaStatus{Applied: applied, Pending: pending, Unknown: unknown}, nil
}

// Migrate applies pending migrations, each in its own transaction.
func (p *Pool) Migrate(ctx context.Context) error {
	status, err := p.Status(ctx)
	if err != nil {
		return err
	}
	if len(status.Unknown) > 0 {
		p.logger.Warn("database has migrations this build does not know", "versions", status.Unknown)
	}
	if status.UpToDate() {
		p.logger.Debug("database schema up to date", "applied", len(status.Applied))
		return nil
	}

	for _, version := range status.Pending {
		start := time.Now()
		if err := p.applyMigration(ctx, version); err != nil {
			return err
		}
		p.logger.Info("applied migration", "version", version, "duration", time.Since(start))
	}
	return nil
}

func (p *Pool) applyMigration(ctx context.Context, version string) error {
	content, err := migrationsFS.ReadFile(path.Join(migrationsDir, version))
	if err != nil {
		return fmt.Errorf("could not read migration %s: %w", version, err)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin migration %s: %w", version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("could not execute migration %s: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		return fmt.Errorf("could not record migration %s: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit migration %s: %w", version, err)
	}
	return nil
}
