package common

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrAlreadyExists = errors.New("already exists")

	// ErrNoCredential is returned when an operation needs an access
	// credential and the token store is empty.
	ErrNoCredential = errors.New("no access credential")

	// Token lifecycle errors.
	ErrTokenExpired   = errors.New(TokenExpiredMessage)
	ErrSessionExpired = errors.New("session expired")
)
