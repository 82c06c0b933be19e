// Package client contains the HTTP side of the tripmate session core.
//
// # Overview
//
// HTTPClient executes requests against the trip-planning backend and keeps
// the access credential usable:
//  1. Every request carries the credential from the token store under the
//     custom "access" header (never an Authorization header).
//  2. A 401 whose body says the credential expired triggers one POST
//     /reissue. Concurrent requests that hit the same expiry share that
//     single reissue and are replayed with the new credential, each at
//     most once.
//  3. A failed reissue clears the token store, is reported to
//     OnSessionExpired subscribers, and is returned to every waiting
//     request as a *SessionExpiredError.
//
// InitDatabase and RunMigrations bootstrap the local SQLite file that
// backs the persistent token store.
//
// # Error Handling
//
// Non-2xx responses become *APIError. Network failures match
// ErrUnavailable. Session loss matches common.ErrSessionExpired.
package client
