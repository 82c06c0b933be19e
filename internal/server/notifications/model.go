package notifications

import (
	"encoding/json"
	"time"
)

// Notification mirrors the JSON record the client consumes from the REST
// endpoints and the event stream.
type Notification struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	IsRead      bool            `json:"isRead"`
	CreatedAt   time.Time       `json:"createdAt"`
	RelatedData json.RawMessage `json:"relatedData,omitempty"`
}
