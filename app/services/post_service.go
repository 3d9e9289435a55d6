package services

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"quill/app/forms"
	"quill/app/models"
	"quill/app/repositories"
)

var ErrNotAuthor = errors.New("user has no author profile")

// PostService handles business logic for blog posts
type PostService struct {
	postRepo   repositories.PostRepository
	authorRepo repositories.AuthorRepository
	created    prometheus.Counter
}

// NewPostService creates a new PostService
func NewPostService(postRepo repositories.PostRepository, authorRepo repositories.AuthorRepository) *PostService {
	return &PostService{
		postRepo:   postRepo,
		authorRepo: authorRepo,
	}
}

// SetCreatedCounter sets the counter incremented for every stored post
func (s *PostService) SetCreatedCounter(c prometheus.Counter) {
	s.created = c
}

// AuthorFor returns the author profile of a user, or ErrNotAuthor
func (s *PostService) AuthorFor(userID int) (*models.Author, error) {
	author, err := s.authorRepo.GetByUserID(userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotAuthor
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load author for user %d: %w", userID, err)
	}
	return author, nil
}

// CreatePost stores the post described by a valid form, attributed to author.
// An invalid form is returned as its forms.ValidationErrors and nothing is stored.
func (s *PostService) CreatePost(author *models.Author, form *forms.PostForm) (*models.Post, error) {
	if !form.IsBound() {
		return nil, errors.New("form is not bound")
	}
	if !form.IsValid() {
		return nil, form.Errors()
	}

	post := &models.Post{
		Title:   form.Title,
		Content: form.Content,
	}
	if err := post.SetAuthor(author); err != nil {
		return nil, err
	}

	if err := s.postRepo.Create(post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	if s.created != nil {
		s.created.Inc()
	}
	return post, nil
}

// GetPost retrieves a post by ID with its author attached
func (s *PostService) GetPost(id int) (*models.Post, error) {
	post, err := s.postRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	author, err := s.authorRepo.GetByID(post.AuthorID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to get author: %w", err)
	}
	post.Author = author

	return post, nil
}

// ListPosts retrieves a page of posts, newest first, and the total count
func (s *PostService) ListPosts(page, perPage int) ([]*models.Post, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	offset := (page - 1) * perPage
	posts, err := s.postRepo.List(perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.postRepo.Count()
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}
