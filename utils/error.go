package utils

import (
	"errors"
	"fmt"
)

// ErrorKind classifies domain errors so callers (controllers, cmd tools) can map
// them without string matching.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
	KindInvalidState ErrorKind = "invalid_state"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("record not found")
	ErrInvalidState = errors.New("invalid state")

	// ErrEmptyItems and ErrNoMatchingItems are validation errors with their own identity.
	ErrEmptyItems      = errors.New("items are required")
	ErrNoMatchingItems = errors.New("no items match the given po number")
)

// AppError wraps a sentinel with the details of one failure.
type AppError struct {
	Kind    ErrorKind
	Err     error
	Details string
}

func (e *AppError) Error() string {
	if e.Details == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Details
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrValidation) match EmptyItems and NoMatchingItems too.
func (e *AppError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrInvalidState:
		return e.Kind == KindInvalidState
	}
	return false
}

func NewValidationError(format string, args ...any) error {
	return &AppError{Kind: KindValidation, Err: ErrValidation, Details: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(resource string, id any) error {
	return &AppError{Kind: KindNotFound, Err: ErrNotFound, Details: fmt.Sprintf("%s %v", resource, id)}
}

func NewInvalidStateError(format string, args ...any) error {
	return &AppError{Kind: KindInvalidState, Err: ErrInvalidState, Details: fmt.Sprintf(format, args...)}
}

func NewEmptyItemsError() error {
	return &AppError{Kind: KindValidation, Err: ErrEmptyItems}
}

func NewNoMatchingItemsError(poNumber string) error {
	return &AppError{Kind: KindValidation, Err: ErrNoMatchingItems, Details: poNumber}
}

// KindOf returns the kind of the first AppError in the chain, or "" for plain errors.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
