package repositories

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	// Key prefixes for different entity types
	PostKeyPrefix   = "post:"
	AuthorKeyPrefix = "author:"
	UserKeyPrefix   = "user:"

	// Unique index prefixes
	AuthorUserIndexPrefix = "idx:author:user:"
	UsernameIndexPrefix   = "idx:user:username:"

	// Sequence keys for auto-incrementing IDs
	PostSeqKey   = "seq:post"
	AuthorSeqKey = "seq:author"
	UserSeqKey   = "seq:user"

	maxTxnRetries = 20
	txnBackoff    = 2 * time.Millisecond
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// entityKey builds a key whose byte order matches numeric ID order
func entityKey(prefix string, id int) []byte {
	return []byte(fmt.Sprintf("%s%010d", prefix, id))
}

// getEntity loads the JSON value stored at key into entity
func getEntity(txn *badger.Txn, key []byte, entity interface{}) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return unmarshalEntity(val, entity)
	})
}

// getIndex resolves a unique index key to the ID it points at
func getIndex(txn *badger.Txn, key []byte) (int, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	var id int
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt index %s", key)
		}
		id = int(binary.BigEndian.Uint64(val))
		return nil
	})
	return id, err
}

// setIndex writes a unique index entry, failing with ErrDuplicate if it is taken
func setIndex(txn *badger.Txn, key []byte, id int) error {
	_, err := txn.Get(key)
	if err == nil {
		return ErrDuplicate
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, uint64(id))
	return txn.Set(key, val)
}

// update runs fn in a read-write transaction, retrying on optimistic conflicts
// with a jittered backoff
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxTxnRetries; i++ {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		time.Sleep(time.Duration(rand.Int63n(int64(txnBackoff) * int64(i+1))))
	}
	return err
}

// marshalEntity marshals an entity to JSON
func marshalEntity(entity interface{}) ([]byte, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	return data, nil
}

// unmarshalEntity unmarshals JSON data into an entity
func unmarshalEntity(data []byte, entity interface{}) error {
	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return nil
}
