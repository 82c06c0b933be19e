// Package cli provides the interactive tripmate command-line client.
//
// It wires configuration, the persisted session store, the API client,
// the session controller with its idle timer, and the notification store
// with its live stream, then runs an interactive REPL. A stored session
// is resumed at startup when the server still accepts it.
//
// Key features:
//   - Login / OAuth login / Logout
//   - Profile and session status
//   - Notifications: list, mark one or all as read, live arrival messages
//   - Client counters (reissues, reconnects, notifications)
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
