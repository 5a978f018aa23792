package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFatalError(t *testing.T) {
	err := Fatal(fmt.Errorf("%w: 4 skipped", ErrSkipBudgetExceeded))
	assert.True(t, IsFatal(err))
	assert.True(t, errors.Is(err, ErrSkipBudgetExceeded))
	assert.Contains(t, err.Error(), "fatal")

	wrapped := fmt.Errorf("next-day: %w", err)
	assert.True(t, IsFatal(wrapped))

	assert.False(t, IsFatal(ErrNothingToProcess))
	assert.Nil(t, Fatal(nil))
}
