package errors

import "errors"

// Sentinel errors for handlers to map to HTTP status.
var (
	ErrUnauthorized     = errors.New("missing or invalid credentials")
	ErrKeyNotFound      = errors.New("api key not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrDuplicateEvent   = errors.New("event already ingested for this session")
	ErrDuplicateSession = errors.New("post already exists for this session")
)
