// Package jsonfile persists each record store as one JSON document on disk.
//
// Every operation loads the whole document, mutates it in memory and rewrites
// the file via temp-file + rename, so a crash mid-write never corrupts the
// previously committed state. A per-store mutex serializes the cycles, so
// concurrent mutations cannot lose updates.
package jsonfile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"teambot/internal/storage"
	"teambot/lib/sl"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

const (
	fileAccounts = "accounts.json"
	fileGroups   = "groups.json"
	fileIndex    = "user_index.json"
	fileInvites  = "invites.json"
)

type Store struct {
	log *slog.Logger
	dir string

	muAccounts sync.Mutex
	muGroups   sync.Mutex
	muIndex    sync.Mutex
	muInvites  sync.Mutex
}

func New(dir string, log *slog.Logger) *Store {
	return &Store{
		log: log.With(sl.Module("storage.jsonfile")),
		dir: dir,
	}
}

func (s *Store) Close() error {
	return nil
}

// load reads a document into doc. A missing or corrupt file leaves doc as the
// caller initialized it, so the store starts empty instead of crashing.
func (s *Store) load(name string, doc any) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("reading store file", slog.String("path", path), sl.Err(err))
		}
		return
	}
	if err = json.Unmarshal(data, doc); err != nil {
		s.log.Warn("corrupt store file, treating as empty", slog.String("path", path), sl.Err(err))
	}
}

// save rewrites a document atomically: write to a temp file, then rename
// over the committed one.
func (s *Store) save(name string, doc any) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err = os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
