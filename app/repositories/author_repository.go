package repositories

import (
	"fmt"
	"strconv"

	"quill/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerAuthorRepository implements AuthorRepository using BadgerDB
type BadgerAuthorRepository struct {
	db *badger.DB
}

// NewBadgerAuthorRepository creates a new BadgerAuthorRepository
func NewBadgerAuthorRepository(db *badger.DB) *BadgerAuthorRepository {
	return &BadgerAuthorRepository{db: db}
}

func authorUserIndex(userID int) []byte {
	return []byte(AuthorUserIndexPrefix + strconv.Itoa(userID))
}

// Create stores a new author. A user can back at most one author.
func (r *BadgerAuthorRepository) Create(author *models.Author) error {
	author.BeforeCreate()
	if err := author.Validate(); err != nil {
		return fmt.Errorf("invalid author: %w", err)
	}

	id, err := sequencesFor(r.db).next(AuthorSeqKey)
	if err != nil {
		return err
	}

	return update(r.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(entityKey(UserKeyPrefix, author.UserID)); err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("user %d: %w", author.UserID, ErrNotFound)
			}
			return err
		}

		if err := setIndex(txn, authorUserIndex(author.UserID), id); err != nil {
			return fmt.Errorf("author for user %d: %w", author.UserID, err)
		}
		author.ID = id

		data, err := marshalEntity(author)
		if err != nil {
			return err
		}
		return txn.Set(entityKey(AuthorKeyPrefix, author.ID), data)
	})
}

// GetByID retrieves an author by ID
func (r *BadgerAuthorRepository) GetByID(id int) (*models.Author, error) {
	var author models.Author
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, entityKey(AuthorKeyPrefix, id), &author)
	})
	if err != nil {
		return nil, err
	}
	return &author, nil
}

// GetByUserID retrieves the author profile of a user
func (r *BadgerAuthorRepository) GetByUserID(userID int) (*models.Author, error) {
	var author models.Author
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := getIndex(txn, authorUserIndex(userID))
		if err != nil {
			return err
		}
		return getEntity(txn, entityKey(AuthorKeyPrefix, id), &author)
	})
	if err != nil {
		return nil, err
	}
	return &author, nil
}
