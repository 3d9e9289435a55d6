package mock

import (
	"fmt"
	"sync"

	"quill/app/models"
	"quill/app/repositories"
)

type PostRepository struct {
	posts  map[int]*models.Post
	nextID int
	mutex  sync.RWMutex

	// CreateErr, when set, is returned by Create
	CreateErr error
}

type AuthorRepository struct {
	authors map[int]*models.Author
	nextID  int
	mutex   sync.RWMutex
}

type UserRepository struct {
	users  map[int]*models.User
	nextID int
	mutex  sync.RWMutex
}

func NewPostRepository() *PostRepository {
	return &PostRepository{
		posts:  make(map[int]*models.Post),
		nextID: 1,
	}
}

func NewAuthorRepository() *AuthorRepository {
	return &AuthorRepository{
		authors: make(map[int]*models.Author),
		nextID:  1,
	}
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:  make(map[int]*models.User),
		nextID: 1,
	}
}

func (m *PostRepository) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.posts = make(map[int]*models.Post)
	m.nextID = 1
}

// PostRepository implementation
func (m *PostRepository) Create(post *models.Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}
	post.BeforeCreate()
	if err := post.Validate(); err != nil {
		return fmt.Errorf("invalid post: %w", err)
	}

	post.ID = m.nextID
	m.nextID++
	stored := *post
	m.posts[post.ID] = &stored
	return nil
}

func (m *PostRepository) GetByID(id int) (*models.Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	post, ok := m.posts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *post
	return &copied, nil
}

func (m *PostRepository) List(limit, offset int) ([]*models.Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	posts := []*models.Post{}
	skipped := 0
	for id := m.nextID - 1; id > 0 && len(posts) < limit; id-- {
		post, ok := m.posts[id]
		if !ok {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		copied := *post
		posts = append(posts, &copied)
	}
	return posts, nil
}

func (m *PostRepository) Count() (int, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.posts), nil
}

// AuthorRepository implementation
func (m *AuthorRepository) Create(author *models.Author) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	author.BeforeCreate()
	if err := author.Validate(); err != nil {
		return fmt.Errorf("invalid author: %w", err)
	}
	for _, existing := range m.authors {
		if existing.UserID == author.UserID {
			return repositories.ErrDuplicate
		}
	}

	author.ID = m.nextID
	m.nextID++
	stored := *author
	m.authors[author.ID] = &stored
	return nil
}

func (m *AuthorRepository) GetByID(id int) (*models.Author, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	author, ok := m.authors[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *author
	return &copied, nil
}

func (m *AuthorRepository) GetByUserID(userID int) (*models.Author, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, author := range m.authors {
		if author.UserID == userID {
			copied := *author
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// UserRepository implementation
func (m *UserRepository) Create(user *models.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	user.BeforeCreate()
	if err := user.Validate(); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}
	for _, existing := range m.users {
		if existing.Username == user.Username {
			return repositories.ErrDuplicate
		}
	}

	user.ID = m.nextID
	m.nextID++
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *UserRepository) GetByID(id int) (*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *UserRepository) GetByUsername(username string) (*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, user := range m.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}
