package telegram

import (
	"errors"
	"fmt"
	"time"
)

// FloodWaitError is a mandatory pause imposed by the platform.
// The wait must be honored exactly; retrying early extends the penalty.
type FloodWaitError struct {
	Seconds int
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("flood wait: %d seconds", e.Seconds)
}

// Duration returns the mandated pause as a time.Duration
func (e *FloodWaitError) Duration() time.Duration {
	return time.Duration(e.Seconds) * time.Second
}

// RetryableError wraps a transient transport fault (network blip, timeout,
// server-side 5xx). Safe to retry with backoff.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// FatalError wraps an unrecoverable fault (revoked credentials, banned
// session). The current pass aborts and the error propagates to the caller.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// AsFloodWait extracts a FloodWaitError from an error chain
func AsFloodWait(err error) (*FloodWaitError, bool) {
	var fw *FloodWaitError
	if errors.As(err, &fw) {
		return fw, true
	}
	return nil, false
}

// IsRetryable reports whether err is a transient fault worth retrying
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// IsFatal reports whether err is unrecoverable
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
