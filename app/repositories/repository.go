package repositories

import (
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Repository owns the badger database and the per-entity repositories built on it
type Repository struct {
	db       *badger.DB
	mutex    sync.Mutex
	dbPath   string
	isTestDB bool
	closed   bool

	Posts   *BadgerPostRepository
	Authors *BadgerAuthorRepository
	Users   *BadgerUserRepository
}

// NewRepository opens the database at path. An empty path or "test_db" opens a
// throwaway database in a temporary directory that is removed on Close.
func NewRepository(path string) (*Repository, error) {
	isTest := false
	if path == "" || path == "test_db" {
		tempPath, err := os.MkdirTemp("", "quill_test_db_")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp dir: %w", err)
		}
		path = tempPath
		isTest = true
	}
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithNumVersionsToKeep(1)
	if isTest {
		opts = opts.WithSyncWrites(false).WithNumGoroutines(1)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	return newRepository(db, path, isTest), nil
}

// NewInMemoryRepository opens a database that lives only in memory
func NewInMemoryRepository() (*Repository, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	return newRepository(db, "", false), nil
}

func newRepository(db *badger.DB, path string, isTest bool) *Repository {
	return &Repository{
		db:       db,
		dbPath:   path,
		isTestDB: isTest,
		Posts:    NewBadgerPostRepository(db),
		Authors:  NewBadgerAuthorRepository(db),
		Users:    NewBadgerUserRepository(db),
	}
}

// DB exposes the underlying database for stores that share it
func (r *Repository) DB() *badger.DB {
	return r.db
}

// Close closes the database, removing it if it was a throwaway test database
func (r *Repository) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	if err := releaseSequences(r.db); err != nil {
		r.db.Close()
		return err
	}
	if err := r.db.Close(); err != nil {
		return err
	}

	// Clean up test database
	if r.isTestDB {
		if err := os.RemoveAll(r.dbPath); err != nil {
			return fmt.Errorf("failed to cleanup test database: %w", err)
		}
	}
	return nil
}

// Clear drops every key in the database. ID sequences restart from 1.
func (r *Repository) Clear() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if err := releaseSequences(r.db); err != nil {
		return err
	}
	return r.db.DropAll()
}
