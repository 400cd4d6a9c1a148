package tracker

import "errors"

var (
	ErrDuplicateUsername  = errors.New("username already registered")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrNotFound           = errors.New("test case not found")
	ErrExportDisabled     = errors.New("test case export is not configured")
)
