// Package common contains shared constants and sentinel errors used across
// tripmate components.
package common

// AccessTokenHeaderName is the HTTP header used to carry the access
// credential on outbound requests and on login/reissue responses.
const AccessTokenHeaderName = "access"

// Error code and message the backend uses in the 401 body when the access
// credential has expired. Either one identifies expiry.
const (
	TokenExpiredCode    = "ACCESS_TOKEN_EXPIRED"
	TokenExpiredMessage = "access token expired"
)

// Endpoint paths consumed by the client.
const (
	PathLogin              = "/api/login"
	PathReissue            = "/reissue"
	PathLogout             = "/api/logout"
	PathMe                 = "/api/user/me"
	PathToken              = "/api/token"
	PathUnread             = "/api/notifications/unread"
	PathUnreadCount        = "/api/notifications/unread-count"
	PathNotifications      = "/api/notifications"
	PathReadAll            = "/api/notifications/read-all"
	PathNotificationStream = "/api/notifications/stream"
)

// RefreshCookieName is the httpOnly cookie holding the refresh artifact.
// The client never reads it; the cookie jar carries it to /reissue.
const RefreshCookieName = "refresh"

// Development backend endpoints. They stand in for the notification
// producers and the OAuth2 provider redirect.
const (
	PathDevNotifications = "/api/dev/notifications"
	PathDevOAuth         = "/api/dev/oauth"
)
