// Package sqlite provides the relational rendition of the storage.Store
// contract on an embedded database. Multi-row mutations run in transactions,
// so membership transitions are isolated without any store-level locking.
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"teambot/internal/storage"
	"teambot/lib/sl"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// New opens (creating if needed) the database file and runs migrations.
func New(dbPath string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err = runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{
		db:  db,
		log: log.With(sl.Module("storage.sqlite")),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
