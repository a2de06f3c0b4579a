package session

import (
	"context"
	"errors"
)

var ErrSessionNotFound = errors.New("session not found")

// Store persists opaque session tokens issued by the auth backend.
type Store interface {
	Create(ctx context.Context, userID string) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}
