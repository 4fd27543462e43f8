package domain

import "errors"

// Validation and lookup failures surfaced to callers. Anything that happens
// after a message row is committed is a degraded delivery, logged but never
// returned as an error.
var (
	// ErrInvalidParticipant sender/receiver not matching thread membership
	ErrInvalidParticipant = errors.New("sender and receiver must be the thread participants")
	// ErrEmptyMessage message text blank after trimming
	ErrEmptyMessage = errors.New("message text is empty")
	// ErrMessageTooLong message text over the configured limit
	ErrMessageTooLong = errors.New("message text exceeds the limit")
	// ErrThreadNotFound unknown thread id
	ErrThreadNotFound = errors.New("thread not found")
	// ErrProductNotFound referenced product missing
	ErrProductNotFound = errors.New("product not found")
	// ErrNotificationNotFound notification missing or not owned by the caller
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrBidTooLow bid amount not above zero
	ErrBidTooLow = errors.New("bid amount must be positive")
)
