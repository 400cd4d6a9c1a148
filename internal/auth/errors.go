package auth

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a presented token could not be turned into a user.
type ErrorKind int

const (
	KindMalformed ErrorKind = iota + 1
	KindInvalidSignature
	KindExpired
	KindUnknownSubject
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindInvalidSignature:
		return "invalid_signature"
	case KindExpired:
		return "expired"
	case KindUnknownSubject:
		return "unknown_subject"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// AuthError is returned by token validation and session resolution.
type AuthError struct {
	Kind ErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Kind, e.Err)
	}
	return "auth: " + e.Kind.String()
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches any AuthError of the same kind, so the sentinels below work with errors.Is.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

var (
	ErrMalformed        = &AuthError{Kind: KindMalformed}
	ErrInvalidSignature = &AuthError{Kind: KindInvalidSignature}
	ErrExpired          = &AuthError{Kind: KindExpired}
	ErrUnknownSubject   = &AuthError{Kind: KindUnknownSubject}
)

func newAuthError(kind ErrorKind, err error) *AuthError {
	return &AuthError{Kind: kind, Err: err}
}

// KindOf extracts the kind of an AuthError anywhere in err's chain. It
// returns 0 when err is not an AuthError.
func KindOf(err error) ErrorKind {
	var aerr *AuthError
	if errors.As(err, &aerr) {
		return aerr.Kind
	}
	return 0
}
