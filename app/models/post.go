package models

import (
	"errors"
	"strings"
	"time"
)

// Validate checks if the post meets all validation requirements
func (p *Post) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return errors.New("title cannot be blank")
	}
	if strings.TrimSpace(p.Content) == "" {
		return errors.New("content cannot be blank")
	}
	return validate.Struct(p)
}

// BeforeCreate sets up any necessary fields before creation
func (p *Post) BeforeCreate() {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
}

// SetAuthor attributes the post to author
func (p *Post) SetAuthor(author *Author) error {
	if author == nil {
		return errors.New("author cannot be nil")
	}

	p.Author = author
	p.AuthorID = author.ID
	return nil
}
