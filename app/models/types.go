package models

import "time"

// User is an account that can log in.
type User struct {
	ID           int       `json:"id" validate:"gte=0"`
	Username     string    `json:"username" validate:"required,max=150"`
	Email        string    `json:"email" validate:"omitempty,email"`
	PasswordHash string    `json:"password_hash" validate:"required"`
	CreatedAt    time.Time `json:"created_at"`
}

// Author is the posting profile of a user. Each user has at most one.
type Author struct {
	ID        int       `json:"id" validate:"gte=0"`
	UserID    int       `json:"user_id" validate:"required,gt=0"`
	CreatedAt time.Time `json:"created_at"`
	User      *User     `json:"-" validate:"-"`
}

// Post represents a blog post.
type Post struct {
	ID        int       `json:"id" validate:"gte=0"`
	Title     string    `json:"title" validate:"required"`
	Content   string    `json:"content" validate:"required"`
	AuthorID  int       `json:"author_id" validate:"required,gt=0"`
	CreatedAt time.Time `json:"created_at"`
	Author    *Author   `json:"-" validate:"-"`
}

// Session ties a browser cookie to a logged-in user.
type Session struct {
	Token     string    `json:"token"`
	UserID    int       `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
