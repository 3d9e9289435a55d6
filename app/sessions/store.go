package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quill/app/models"
)

var ErrSessionNotFound = errors.New("session not found")

// Store persists login sessions
type Store interface {
	Create(ctx context.Context, userID int) (*models.Session, error)
	Get(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
}

// clock and token source shared by the store implementations
type base struct {
	ttl      time.Duration
	now      func() time.Time
	newToken func() string
}

func newBase(ttl time.Duration) base {
	return base{
		ttl:      ttl,
		now:      time.Now,
		newToken: func() string { return uuid.NewString() },
	}
}

func (b base) newSession(userID int) (*models.Session, []byte, error) {
	if userID <= 0 {
		return nil, nil, fmt.Errorf("invalid user id %d", userID)
	}
	now := b.now().UTC()
	session := &models.Session{
		Token:     b.newToken(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(b.ttl),
	}
	data, err := json.Marshal(session)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	return session, data, nil
}

// decode unmarshals a stored session and rejects it once expired
func (b base) decode(data []byte) (*models.Session, error) {
	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.Expired(b.now()) {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}
