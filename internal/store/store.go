// Package store owns the embedded SQLite persistence primitive: opening the
// database, applying migrations, and running transactions (spec §6).
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mcp-anki/anki/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps *sql.DB with migration and transaction helpers, mirroring the
// teacher's db.DB.
type Store struct {
	*sql.DB
	log *logger.Logger
}

// Open opens (creating if absent) the SQLite database at path and applies
// any pending migrations. WAL is enabled so concurrent readers never block
// the single writer (spec §5).
func Open(path string) (*Store, error) {
	log := logger.Default().WithPrefix("store")

	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL", path)
	log.Info("opening database: %s", path)

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.Error("failed to open database: %v", err)
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	s := &Store{DB: sqlDB, log: log}

	log.Debug("applying migrations")
	if err := s.applyMigrations(context.Background()); err != nil {
		log.Error("failed to apply migrations: %v", err)
		return nil, err
	}

	log.Info("database ready")
	return s, nil
}

// NewFromDB wraps an already-open, already-migrated *sql.DB, letting tests
// (and any future embedder) reuse WithTx without going through Open's
// file-path/migration flow.
func NewFromDB(db *sql.DB) *Store {
	return &Store{DB: db, log: logger.Default().WithPrefix("store")}
}

func (s *Store) applyMigrations(ctx context.Context) error {
	if _, err := s.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS migrations (version TEXT PRIMARY KEY, applied_at DATETIME DEFAULT CURRENT_TIMESTAMP)`); err != nil {
		return err
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		version := entry.Name()
		applied, err := s.isMigrationApplied(ctx, version)
		if err != nil {
			return err
		}
		if applied {
			s.log.Debug("migration %s already applied, skipping", version)
			continue
		}
		sqlBytes, err := migrationsFS.ReadFile("migrations/" + version)
		if err != nil {
			return err
		}
		s.log.Info("applying migration: %s", version)
		if _, err := s.ExecContext(ctx, string(sqlBytes)); err != nil {
			s.log.Error("migration %s failed: %v", version, err)
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if _, err := s.ExecContext(ctx, `INSERT INTO migrations (version) VALUES (?)`, version); err != nil {
			return err
		}
		s.log.Info("migration %s applied successfully", version)
	}
	return nil
}

func (s *Store) isMigrationApplied(ctx context.Context, version string) (bool, error) {
	var v string
	err := s.QueryRowContext(ctx, `SELECT version FROM migrations WHERE version = ?`, version).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any error, per spec §5 ("card update and review-log insert must
// be atomic").
func (s *Store) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		s.log.Error("failed to begin transaction: %v", err)
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		s.log.Debug("transaction rolled back due to error: %v", err)
		return err
	}
	if err := tx.Commit(); err != nil {
		s.log.Error("failed to commit transaction: %v", err)
		return err
	}
	s.log.Debug("transaction committed")
	return nil
}
