package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a row does not exist for the requesting owner.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when a request targets another owner's rows.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError is a local, synchronous input error. It never reaches the network.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every problem found on a form.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, v := range e {
		msgs = append(msgs, v.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// IsValidation reports whether err is (or wraps) a validation failure.
func IsValidation(err error) bool {
	var one ValidationError
	var many ValidationErrors
	return errors.As(err, &many) || errors.As(err, &one)
}
