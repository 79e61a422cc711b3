package hangout

import (
	"errors"
	"fmt"
)

var (
	// ErrSubscriptionFailed is carried by the final Snapshot of a subscription
	// that could not be (re)established, and by failed one-shot reads.
	ErrSubscriptionFailed = errors.New("request store subscription failed")
	// ErrWriteFailed wraps backing store errors on create and cancel.
	ErrWriteFailed = errors.New("request store write failed")

	ErrRequestNotFound = errors.New("hangout request not found")
	ErrNotOwner        = errors.New("only the creator can cancel a hangout request")
	ErrRequestExpired  = errors.New("hangout request has expired")
)

// ValidationError reports a rejected create input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func newValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
