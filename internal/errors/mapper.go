package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// disconnectMarkers are fragments seen in write errors once the peer is gone.
var disconnectMarkers = []string{
	"closing transport",
	"connection reset",
	"broken pipe",
	"use of closed network connection",
}

// IsClientDisconnect reports whether err means the browser went away.
func IsClientDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrClientGone) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, net.ErrClosed) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, marker := range disconnectMarkers {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}

// Category returns the taxonomy name for err.
func Category(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrConfig):
		return "ErrConfig"
	case errors.Is(err, ErrInvalidInput):
		return "ErrInvalidInput"
	case errors.Is(err, ErrNotFound):
		return "ErrNotFound"
	case errors.Is(err, ErrTooLarge):
		return "ErrTooLarge"
	case errors.Is(err, ErrTransient):
		return "ErrTransient"
	case errors.Is(err, ErrProtocol):
		return "ErrProtocol"
	case errors.Is(err, ErrProcessFailed):
		return "ErrProcessFailed"
	case IsClientDisconnect(err):
		return "ErrClientGone"
	case errors.Is(err, ErrStoreClosed):
		return "ErrStoreClosed"
	default:
		return "ErrInternal"
	}
}

func IsRetryable(err error) bool {
	return err != nil && errors.Is(err, ErrTransient)
}

func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func InvalidInput(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInvalidInput)
}

func NotFound(message string) error {
	return fmt.Errorf("%s: %w", message, ErrNotFound)
}

func Transient(message string) error {
	return fmt.Errorf("%s: %w", message, ErrTransient)
}

func TooLarge(message string) error {
	return fmt.Errorf("%s: %w", message, ErrTooLarge)
}

func Config(message string) error {
	return fmt.Errorf("%s: %w", message, ErrConfig)
}
