// Package ledger records run history per project in a SQLite database and
// enforces the project's retention settings. The ledger is bookkeeping only:
// asset bytes live in the content-addressed store, the ledger tracks which
// runs referenced them.
package ledger

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gridnote/studio/internal/schema"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database and applies pending
// migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type migration struct {
	version string
	sql     string
}

func loadMigrations() ([]migration, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	migrations := make([]migration, 0, len(names))
	for _, name := range names {
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		migrations = append(migrations, migration{
			version: strings.TrimSuffix(name, ".sql"),
			sql:     string(data),
		})
	}
	return migrations, nil
}

func (s *Store) applyMigrations(ctx context.Context) error {
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var applied int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", m.version).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", m.version, err)
		}
		if applied > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("record migration %s: %w", m.version, err)
		}
	}

	return tx.Commit()
}

// RunRecord is one row of run history.
type RunRecord struct {
	RunID         string
	ProjectID     string
	StartedAt     time.Time
	FinishedAt    time.Time
	Status        string
	Error         string
	CacheHits     int
	ArtifactBytes int64
	Artifacts     []schema.AssetRef
}

// Run statuses recorded in the ledger.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// RecordRun inserts a run and its artifact rows in one transaction.
func (s *Store) RecordRun(ctx context.Context, rec RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var artifactBytes int64
	for _, ref := range rec.Artifacts {
		artifactBytes += ref.SizeBytes
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, project_id, started_at, finished_at, status, error, cache_hits, artifact_bytes)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.ProjectID,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
		rec.Status,
		nullableString(rec.Error),
		rec.CacheHits,
		artifactBytes,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, ref := range rec.Artifacts {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO artifacts (run_id, hash, mime_type, size_bytes, path)
             VALUES (?, ?, ?, ?, ?)`,
			rec.RunID, ref.Hash, ref.MimeType, ref.SizeBytes, ref.Path,
		)
		if err != nil {
			return fmt.Errorf("insert artifact %s: %w", ref.Hash, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs for a project, newest first.
func (s *Store) ListRuns(ctx context.Context, projectID string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, project_id, started_at, finished_at, status, COALESCE(error, ''), cache_hits, artifact_bytes
         FROM runs WHERE project_id = ? ORDER BY started_at DESC LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var started, finished string
		if err := rows.Scan(&rec.RunID, &rec.ProjectID, &started, &finished, &rec.Status, &rec.Error, &rec.CacheHits, &rec.ArtifactBytes); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
