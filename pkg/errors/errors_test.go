package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelHelpers(t *testing.T) {
	wrapped := fmt.Errorf("load coach: %w", ErrNotFound)
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(wrapped))

	conflict := fmt.Errorf("insert ledger: %w", ErrConflict)
	assert.True(t, IsConflict(conflict))
	assert.False(t, IsNotFound(conflict))
}

func TestIsAlreadyExists(t *testing.T) {
	assert.True(t, IsAlreadyExists(fmt.Errorf("x: %w", ErrAlreadyExists)))
	assert.False(t, IsAlreadyExists(ErrValidation))
}
