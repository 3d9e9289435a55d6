package models

import "time"

// Validate checks if the author meets all validation requirements
func (a *Author) Validate() error {
	return validate.Struct(a)
}

// BeforeCreate sets up any necessary fields before creation
func (a *Author) BeforeCreate() {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
}
