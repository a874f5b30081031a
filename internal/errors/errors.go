package errors

import (
	"errors"
)

// Sentinel errors for the failure categories the server distinguishes.
var (
	// ErrConfig - missing credentials or directories; reported as a failure result, never raised to clients
	ErrConfig = errors.New("configuration error")

	// ErrInvalidInput - malformed request (empty message, bad identity, missing upload part)
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound - resource missing or outside the allowed roots
	ErrNotFound = errors.New("not found")

	// ErrTooLarge - request body over the configured ceiling
	ErrTooLarge = errors.New("too large")

	// ErrTransient - SMTP or network failure; the caller may retry
	ErrTransient = errors.New("transient error")

	// ErrProtocol - a single undecodable line on the assistant stream; dropped
	ErrProtocol = errors.New("protocol error")

	// ErrProcessFailed - assistant exited non-zero or produced no text
	ErrProcessFailed = errors.New("assistant process failed")

	// ErrClientGone - the browser closed the stream
	ErrClientGone = errors.New("client disconnected")

	// ErrStoreClosed - history worker no longer accepts requests
	ErrStoreClosed = errors.New("store closed")

	// ErrInternal - anything else
	ErrInternal = errors.New("internal error")
)

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func New(text string) error {
	return errors.New(text)
}
