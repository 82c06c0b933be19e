package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/tripmate/internal/client/models"
	"github.com/dmitrijs2005/tripmate/internal/common"
)

func marshal(in any) ([]byte, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return b, nil
}

func (c *HTTPClient) Unread(ctx context.Context) ([]models.Notification, error) {
	var list []models.Notification
	if err := c.doJSON(ctx, http.MethodGet, common.PathUnread, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

type countResponse struct {
	Count int `json:"count"`
}

func (c *HTTPClient) UnreadCount(ctx context.Context) (int, error) {
	var resp countResponse
	if err := c.doJSON(ctx, http.MethodGet, common.PathUnreadCount, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// MarkRead acknowledges a single notification.
func (c *HTTPClient) MarkRead(ctx context.Context, id int64) error {
	path := fmt.Sprintf("%s/%d/read", common.PathNotifications, id)
	return c.doJSON(ctx, http.MethodPatch, path, nil, nil)
}

func (c *HTTPClient) MarkAllRead(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPatch, common.PathReadAll, nil, nil)
}
