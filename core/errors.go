package core

import "github.com/pkg/errors"

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

// ExtractionError wraps any failure of the image-to-text gateway:
// network, service or parse errors all surface as one terminal error.
type ExtractionError struct {
	Err error
}

func NewExtractionError(err error) error {
	return &ExtractionError{Err: err}
}

func (e ExtractionError) Error() string {
	if e.Err == nil {
		return "extraction failed"
	}
	return "extraction failed: " + e.Err.Error()
}

func (e ExtractionError) Unwrap() error { return e.Err }

func IsExtractionError(err error) bool {
	_, ok := errors.Cause(err).(*ExtractionError)
	return ok
}

type shutdown struct {
	message string
}

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
