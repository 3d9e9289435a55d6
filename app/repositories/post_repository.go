package repositories

import (
	"fmt"

	"quill/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerPostRepository implements PostRepository using BadgerDB
type BadgerPostRepository struct {
	db *badger.DB
}

// NewBadgerPostRepository creates a new BadgerPostRepository
func NewBadgerPostRepository(db *badger.DB) *BadgerPostRepository {
	return &BadgerPostRepository{db: db}
}

// Create validates and stores a new post, assigning its ID
func (r *BadgerPostRepository) Create(post *models.Post) error {
	post.BeforeCreate()
	if err := post.Validate(); err != nil {
		return fmt.Errorf("invalid post: %w", err)
	}

	id, err := sequencesFor(r.db).next(PostSeqKey)
	if err != nil {
		return err
	}

	return update(r.db, func(txn *badger.Txn) error {
		// The author must exist
		if _, err := txn.Get(entityKey(AuthorKeyPrefix, post.AuthorID)); err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("author %d: %w", post.AuthorID, ErrNotFound)
			}
			return err
		}

		post.ID = id

		data, err := marshalEntity(post)
		if err != nil {
			return err
		}
		return txn.Set(entityKey(PostKeyPrefix, post.ID), data)
	})
}

// GetByID retrieves a post by ID
func (r *BadgerPostRepository) GetByID(id int) (*models.Post, error) {
	var post models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, entityKey(PostKeyPrefix, id), &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// List retrieves a page of posts, newest first
func (r *BadgerPostRepository) List(limit, offset int) ([]*models.Post, error) {
	posts := []*models.Post{}
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(PostKeyPrefix)
		count := 0
		for it.Seek(append([]byte(PostKeyPrefix), 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			if count < offset {
				count++
				continue
			}
			if count >= offset+limit {
				break
			}

			var post models.Post
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &post)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal post: %w", err)
			}
			posts = append(posts, &post)
			count++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Count returns the number of stored posts
func (r *BadgerPostRepository) Count() (int, error) {
	count := 0
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(PostKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
