package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("checkout: %w", Invalidf("quantity must be positive, got %d", 0))

	assert.True(t, errors.Is(err, ErrInvalid))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "quantity must be positive, got 0", Message(err))
}

func TestSentinelIdentity(t *testing.T) {
	errGone := New(ErrNotFound, "product not found")
	wrapped := fmt.Errorf("get: %w", errGone)

	assert.ErrorIs(t, wrapped, errGone)
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.Equal(t, "", Message(errors.New("boom")))
}
