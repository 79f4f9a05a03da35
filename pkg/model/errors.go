package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("object not found")
	// ErrExists is returned when inserting an object whose ID is taken.
	ErrExists       = errors.New("object already exists")
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidObject is returned when staged fields cannot be stored.
	ErrInvalidObject = errors.New("invalid object")
	// ErrCanceled wraps context cancellation and deadline errors of store
	// and backend calls.
	ErrCanceled = errors.New("operation canceled")
)

// IsCanceled reports whether err stems from a cancelled or expired context.
func IsCanceled(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrCanceled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}
	// Some driver errors carry the context error only in their message.
	msg := err.Error()
	return strings.Contains(msg, context.Canceled.Error()) ||
		strings.Contains(msg, context.DeadlineExceeded.Error())
}

// WrapError marks cancellation errors with ErrCanceled, keeping the cause.
// Other errors are returned unchanged.
func WrapError(err error) error {
	if !IsCanceled(err) || errors.Is(err, ErrCanceled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCanceled, err)
}
