package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationType_Known(t *testing.T) {
	tests := []struct {
		in         NotificationType
		known      bool
		settlement bool
	}{
		{NotificationInvitation, true, false},
		{NotificationTripUpdate, true, false},
		{NotificationComment, true, false},
		{NotificationSystem, true, false},
		{NotificationSettlementRequested, true, true},
		{"SETTLEMENT_CANCELLED", true, true},
		{"ALBUM_SHARED", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.known, tt.in.Known(), "Known(%q)", tt.in)
		assert.Equal(t, tt.settlement, tt.in.IsSettlement(), "IsSettlement(%q)", tt.in)
	}
}

func TestNotification_DecodesBackendPayload(t *testing.T) {
	payload := `{"id":42,"type":"INVITATION","title":"Trip to Jeju","content":"Mina invited you",
		"isRead":false,"createdAt":"2024-05-01T10:00:00Z","relatedData":{"tripId":7}}`

	var n Notification
	require.NoError(t, json.Unmarshal([]byte(payload), &n))
	assert.Equal(t, int64(42), n.ID)
	assert.Equal(t, NotificationInvitation, n.Type)
	assert.False(t, n.IsRead)
	assert.JSONEq(t, `{"tripId":7}`, string(n.RelatedData))
	assert.Equal(t, 2024, n.CreatedAt.Year())
}

func TestSessionStatus_String(t *testing.T) {
	assert.Equal(t, "unknown", SessionUnknown.String())
	assert.Equal(t, "logged-out", SessionLoggedOut.String())
	assert.Equal(t, "logged-in", SessionLoggedIn.String())
	assert.Equal(t, "invalid", SessionStatus(9).String())
	assert.True(t, Session{Status: SessionLoggedIn}.LoggedIn())
	assert.False(t, Session{Status: SessionUnknown, Loading: true}.LoggedIn())
}
