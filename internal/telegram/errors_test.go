package telegram

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	flood := &FloodWaitError{Seconds: 15}
	retryable := &RetryableError{Err: errors.New("connection reset")}
	fatal := &FatalError{Err: errors.New("auth key revoked")}

	fw, ok := AsFloodWait(flood)
	assert.True(t, ok)
	assert.Equal(t, 15*time.Second, fw.Duration())

	assert.True(t, IsRetryable(retryable))
	assert.False(t, IsRetryable(flood))
	assert.False(t, IsRetryable(fatal))

	assert.True(t, IsFatal(fatal))
	assert.False(t, IsFatal(retryable))
}

func TestErrorClassificationThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("search %q: %w", "ielts", &FloodWaitError{Seconds: 30})
	fw, ok := AsFloodWait(wrapped)
	assert.True(t, ok)
	assert.Equal(t, 30, fw.Seconds)

	wrapped = fmt.Errorf("join 555: %w", &FatalError{Err: errors.New("banned")})
	assert.True(t, IsFatal(wrapped))
	assert.False(t, IsRetryable(wrapped))
}

func TestRetryableUnwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := &RetryableError{Err: cause}
	assert.ErrorIs(t, err, cause)
}
