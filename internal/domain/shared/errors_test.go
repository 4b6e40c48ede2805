package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError(t *testing.T) {
	err := NewDomainError("UNKNOWN_PROFILE", "Unknown RFM profile")

	assert.Equal(t, "Unknown RFM profile", err.Error())
	assert.Equal(t, "UNKNOWN_PROFILE", err.Code)
}

func TestDomainError_Is(t *testing.T) {
	wrapped := fmt.Errorf("%w: %q", ErrNotFound, "report")

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.True(t, errors.Is(NewDomainError("NOT_FOUND", "other text"), ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrInvalidInput))

	var de *DomainError
	assert.True(t, errors.As(wrapped, &de))
	assert.Equal(t, "NOT_FOUND", de.Code)
}
