package client

import (
	"context"

	"github.com/dmitrijs2005/tripmate/internal/client/models"
)

// Client is the backend surface used by the session and notification
// services. HTTPClient is the implementation.
type Client interface {
	Login(ctx context.Context, email string, password []byte) error
	ExchangeOAuth(ctx context.Context) error
	Me(ctx context.Context) (*models.UserProfile, error)
	Logout(ctx context.Context, credential string) error

	Unread(ctx context.Context) ([]models.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) error

	OnSessionExpired(fn func(error)) (unsubscribe func())
}

var _ Client = (*HTTPClient)(nil)
