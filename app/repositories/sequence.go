package repositories

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// seqBandwidth is how many IDs a sequence leases from disk at a time
const seqBandwidth = 100

// sequences hands out IDs from badger sequences leased once per database and
// key, so concurrent creates never contend on a shared counter key
type sequences struct {
	db   *badger.DB
	mu   sync.Mutex
	seqs map[string]*badger.Sequence
}

var (
	registryMu sync.Mutex
	registry   = map[*badger.DB]*sequences{}
)

// sequencesFor returns the sequences shared by every repository on db
func sequencesFor(db *badger.DB) *sequences {
	registryMu.Lock()
	defer registryMu.Unlock()
	s, ok := registry[db]
	if !ok {
		s = &sequences{db: db, seqs: map[string]*badger.Sequence{}}
		registry[db] = s
	}
	return s
}

// next returns the next ID for key. IDs start at 1.
func (s *sequences) next(key string) (int, error) {
	s.mu.Lock()
	seq, ok := s.seqs[key]
	if !ok {
		var err error
		seq, err = s.db.GetSequence([]byte(key), seqBandwidth)
		if err != nil {
			s.mu.Unlock()
			return 0, fmt.Errorf("failed to get sequence %s: %w", key, err)
		}
		s.seqs[key] = seq
	}
	s.mu.Unlock()

	n, err := seq.Next()
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", key, err)
	}
	return int(n) + 1, nil
}

// releaseSequences returns unused leases to db and forgets its sequences.
// It must run before db is closed or dropped.
func releaseSequences(db *badger.DB) error {
	registryMu.Lock()
	s, ok := registry[db]
	delete(registry, db)
	registryMu.Unlock()
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for key, seq := range s.seqs {
		if err := seq.Release(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to release sequence %s: %w", key, err)
		}
	}
	s.seqs = map[string]*badger.Sequence{}
	return firstErr
}
