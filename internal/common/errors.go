// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
)

// Sentinel errors. Callers wrap them with %w and match with errors.Is.
var (
	// Storage.
	ErrNotFound          = errors.New("not found")
	ErrDuplicateEntry    = errors.New("duplicate entry")
	ErrDatabaseCorrupted = errors.New("database corrupted")

	// Rules.
	ErrInvalidRule         = errors.New("invalid rule")
	ErrRuleConflict        = errors.New("rule conflict")
	ErrSystemRuleImmutable = errors.New("system rules cannot be modified")

	// Documents and payment files.
	ErrInvalidDocument = errors.New("invalid rule document")
	ErrNoPayments      = errors.New("no payments to classify")
	ErrInterrupted     = errors.New("interrupted")

	// Configuration.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError pairs a message meant for the terminal with the error behind it.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.UserMessage
	}
	return e.UserMessage + ": " + e.Err.Error()
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError wraps err with a message for the user.
func NewUserError(userMessage string, err error) error {
	return &UserError{UserMessage: userMessage, Err: err}
}

