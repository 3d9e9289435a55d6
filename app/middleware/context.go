package middleware

import (
	"context"

	"quill/app/models"
)

const (
	userKey contextKey = "user"
	csrfKey contextKey = "csrf_token"
)

// WithUser returns a copy of ctx carrying the authenticated user
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// CurrentUser returns the authenticated user, or nil for anonymous requests
func CurrentUser(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

// CSRFToken returns the token handlers must embed in forms
func CSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(csrfKey).(string)
	return token
}
