// Package models defines the client-side data model: the user profile
// snapshot, the derived session state and notifications.
package models
