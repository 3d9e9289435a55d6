package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"quill/app/models"
)

const badgerKeyPrefix = "session:"

// BadgerStore keeps sessions in the application database using entry TTLs
type BadgerStore struct {
	base
	db *badger.DB
}

// NewBadgerStore creates a session store on db
func NewBadgerStore(db *badger.DB, ttl time.Duration) *BadgerStore {
	return &BadgerStore{base: newBase(ttl), db: db}
}

// Create starts a session for userID that expires after the store TTL
func (s *BadgerStore) Create(ctx context.Context, userID int) (*models.Session, error) {
	session, data, err := s.newSession(userID)
	if err != nil {
		return nil, err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(badgerKeyPrefix+session.Token), data).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Get returns the live session for token, or ErrSessionNotFound
func (s *BadgerStore) Get(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + token))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.decode(data)
}

// Delete removes the session for token. Unknown tokens are not an error.
func (s *BadgerStore) Delete(ctx context.Context, token string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(badgerKeyPrefix + token))
	})
}
