package repositories

import "quill/app/models"

// PostRepository defines the interface for post data access
type PostRepository interface {
	Create(post *models.Post) error
	GetByID(id int) (*models.Post, error)
	List(limit, offset int) ([]*models.Post, error)
	Count() (int, error)
}

// AuthorRepository defines the interface for author data access
type AuthorRepository interface {
	Create(author *models.Author) error
	GetByID(id int) (*models.Author, error)
	GetByUserID(userID int) (*models.Author, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id int) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
}
