package models

import (
	"encoding/json"
	"strings"
	"time"
)

// NotificationType classifies a notification. Settlement events come in
// several flavours that share the SETTLEMENT_ prefix.
type NotificationType string

const (
	NotificationInvitation NotificationType = "INVITATION"
	NotificationTripUpdate NotificationType = "TRIP_UPDATE"
	NotificationComment    NotificationType = "COMMENT"
	NotificationSystem     NotificationType = "SYSTEM"

	NotificationSettlementRequested NotificationType = "SETTLEMENT_REQUESTED"
	NotificationSettlementCompleted NotificationType = "SETTLEMENT_COMPLETED"
)

// IsSettlement reports whether t is one of the SETTLEMENT_* types.
func (t NotificationType) IsSettlement() bool {
	return strings.HasPrefix(string(t), "SETTLEMENT_")
}

// Known reports whether the type is one the client understands.
func (t NotificationType) Known() bool {
	switch t {
	case NotificationInvitation, NotificationTripUpdate, NotificationComment, NotificationSystem:
		return true
	}
	return t.IsSettlement()
}

// Notification is a server-created event delivered over the stream or by
// REST sync. Only IsRead is ever changed on the client.
type Notification struct {
	ID          int64            `json:"id"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Content     string           `json:"content"`
	IsRead      bool             `json:"isRead"`
	CreatedAt   time.Time        `json:"createdAt"`
	RelatedData json.RawMessage  `json:"relatedData,omitempty"`
}
