package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserError(t *testing.T) {
	t.Run("wraps the cause", func(t *testing.T) {
		cause := errors.New("disk full")
		err := NewUserError("I couldn't save that.", cause)

		assert.Equal(t, "I couldn't save that.: disk full", err.Error())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("without a cause", func(t *testing.T) {
		err := NewUserError("I couldn't save that.", nil)
		assert.Equal(t, "I couldn't save that.", err.Error())
	})
}

func TestUserMessage(t *testing.T) {
	t.Run("extracts from a wrapped chain", func(t *testing.T) {
		err := fmt.Errorf("handling message: %w", NewUserError("I couldn't save that.", errors.New("disk full")))
		assert.Equal(t, "I couldn't save that.", UserMessage(err, "Something went wrong."))
	})

	t.Run("fallback for plain errors", func(t *testing.T) {
		assert.Equal(t, "Something went wrong.", UserMessage(errors.New("boom"), "Something went wrong."))
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrRateLimit))
	assert.True(t, IsRetryable(fmt.Errorf("calling api: %w", ErrRateLimit)))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("503"), Retryable: true}))
	assert.False(t, IsRetryable(&RetryableError{Err: errors.New("401"), Retryable: false}))
	assert.False(t, IsRetryable(errors.New("parse failure")))
}
