// Package refreshtokens stores the refresh artifacts behind the httpOnly
// cookie. A token names one login session.
package refreshtokens

import (
	"context"
	"time"
)

type RefreshToken struct {
	Token     string
	UserID    int64
	Expires   time.Time
	CreatedAt time.Time
}

type Repository interface {
	Create(ctx context.Context, userID int64, token string, validity time.Duration) error
	// Find returns common.ErrNotFound for unknown and expired tokens.
	Find(ctx context.Context, token string) (*RefreshToken, error)
	Delete(ctx context.Context, token string) error
}
