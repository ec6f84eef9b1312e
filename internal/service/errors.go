package service

import "errors"

var ( // Define custom errors
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrQueryNotFound      = errors.New("query not found")
	ErrStoreUnavailable   = errors.New("store unavailable")
)
