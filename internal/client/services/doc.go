// Package services holds the session lifecycle and the notification state
// that the interactive client drives.
//
// SessionController owns the authentication state and publishes lifecycle
// events. NotificationStore seeds, tracks and reconciles notifications for
// the logged-in user and follows the controller through Attach.
package services
