package repositories

import (
	"fmt"

	"quill/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerUserRepository implements UserRepository using BadgerDB
type BadgerUserRepository struct {
	db *badger.DB
}

// NewBadgerUserRepository creates a new BadgerUserRepository
func NewBadgerUserRepository(db *badger.DB) *BadgerUserRepository {
	return &BadgerUserRepository{db: db}
}

func usernameIndex(username string) []byte {
	return []byte(UsernameIndexPrefix + username)
}

// Create stores a new user. Usernames are unique.
func (r *BadgerUserRepository) Create(user *models.User) error {
	user.BeforeCreate()
	if err := user.Validate(); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}

	id, err := sequencesFor(r.db).next(UserSeqKey)
	if err != nil {
		return err
	}

	return update(r.db, func(txn *badger.Txn) error {
		if err := setIndex(txn, usernameIndex(user.Username), id); err != nil {
			return fmt.Errorf("username %q: %w", user.Username, err)
		}
		user.ID = id

		data, err := marshalEntity(user)
		if err != nil {
			return err
		}
		return txn.Set(entityKey(UserKeyPrefix, user.ID), data)
	})
}

// GetByID retrieves a user by ID
func (r *BadgerUserRepository) GetByID(id int) (*models.User, error) {
	var user models.User
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, entityKey(UserKeyPrefix, id), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername retrieves a user by username
func (r *BadgerUserRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := getIndex(txn, usernameIndex(username))
		if err != nil {
			return err
		}
		return getEntity(txn, entityKey(UserKeyPrefix, id), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
