package models

import (
	"strings"
	"time"
)

// Validate checks if the user meets all validation requirements
func (u *User) Validate() error {
	return validate.Struct(u)
}

// BeforeCreate normalises the user before it is stored
func (u *User) BeforeCreate() {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
}
