package core

import "github.com/pkg/errors"

// Request error taxonomy. Handlers map these to HTTP statuses;
// services return them (wrapped) without knowing about HTTP.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("permission denied")
	ErrNotFound            = errors.New("not found")
	ErrServerMisconfigured = errors.New("server misconfigured")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

// NewShutdownError returns an error that signals the server to gracefully shut down.
func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
