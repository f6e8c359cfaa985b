// Package store is the redveil persistence layer: hidden-post records and
// the blocked-channel set, in SQLite. It also fans out in-process change
// notifications so the session can react when another writer (the management
// API) edits the blocked set.
package store

import (
	"database/sql"

	"github.com/redveil/redveil/dbopen"
)

// Store is the redveil database handle.
type Store struct {
	DB *sql.DB

	notify *notifier
}

// Open opens (or creates) the redveil SQLite database at path and applies
// the schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db, notify: newNotifier()}, nil
}

// OpenDB wraps an already-open database (tests).
func OpenDB(db *sql.DB) *Store {
	return &Store{DB: db, notify: newNotifier()}
}

// Close closes the database and all notification channels.
func (s *Store) Close() error {
	s.notify.close()
	return s.DB.Close()
}
