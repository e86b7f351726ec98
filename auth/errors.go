package auth

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials     = errors.New("invalid username or password")
	ErrUserExists             = errors.New("user already exists")
	ErrUserNotFound           = errors.New("user not found")
	ErrSelfDelete             = errors.New("admins cannot delete themselves")
	ErrCurrentPasswordInvalid = errors.New("current password is invalid")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func required(field string) error {
	return &ValidationError{Field: field, Reason: "required"}
}

// UpstreamError wraps a failure of the API-key registration that happened
// after the credentials had already been verified.
type UpstreamError struct {
	Username string
	Err      error
}

func (e *UpstreamError) Error() string {
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
