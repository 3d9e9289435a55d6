package services

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"quill/app/models"
	"quill/app/repositories"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrPasswordRequired   = errors.New("password is required")
)

// AuthService handles user accounts and author profiles
type AuthService struct {
	userRepo   repositories.UserRepository
	authorRepo repositories.AuthorRepository
	cost       int
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repositories.UserRepository, authorRepo repositories.AuthorRepository) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		authorRepo: authorRepo,
		cost:       bcrypt.DefaultCost,
	}
}

// SetCost overrides the bcrypt cost, mainly to keep tests fast
func (s *AuthService) SetCost(cost int) {
	s.cost = cost
}

// Register creates a user with a bcrypt-hashed password
func (s *AuthService) Register(username, email, password string) (*models.User, error) {
	if password == "" {
		return nil, ErrPasswordRequired
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return user, nil
}

// RegisterAuthor gives a user an author profile, returning the existing one if present
func (s *AuthService) RegisterAuthor(userID int) (*models.Author, error) {
	author, err := s.authorRepo.GetByUserID(userID)
	if err == nil {
		return author, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	author = &models.Author{UserID: userID}
	if err := s.authorRepo.Create(author); err != nil {
		return nil, fmt.Errorf("failed to create author: %w", err)
	}
	return author, nil
}

// Authenticate checks a username and password pair
func (s *AuthService) Authenticate(username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(username)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser retrieves a user by ID
func (s *AuthService) GetUser(id int) (*models.User, error) {
	return s.userRepo.GetByID(id)
}
