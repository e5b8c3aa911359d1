package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidToken  = errors.New("invalid token")
	ErrEmptySecret   = errors.New("empty secret")
	ErrSecretTooLong = errors.New("secret too long")
)

// Failure classifies an anticipated rejection. Each kind maps to exactly one
// HTTP status at the transport boundary.
type Failure string

const (
	FailInvalid      Failure = "invalid"
	FailUnauthorized Failure = "unauthorized"
	FailForbidden    Failure = "forbidden"
	FailNotFound     Failure = "not_found"
	FailConflict     Failure = "conflict"
)

// RequestError is a rejection whose Message is safe to show to the caller.
type RequestError struct {
	Kind    Failure
	Message string
}

func (e *RequestError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func Reject(kind Failure, message string) error {
	return &RequestError{Kind: kind, Message: message}
}

// IsFailure reports whether err is a RequestError of the given kind.
func IsFailure(err error, kind Failure) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Kind == kind
}
