package ledgerr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesIs(t *testing.T) {
	wrapped := Wrap(ErrStorageFailure, "opening db")
	assert.True(t, Is(wrapped, ErrStorageFailure))
	assert.False(t, Is(wrapped, ErrNotInitialized))
}

func TestWrapfPreservesIs(t *testing.T) {
	wrapped := Wrapf(ErrAddressDecode, "address %q malformed", "abc")
	assert.True(t, Is(wrapped, ErrAddressDecode))
	assert.Contains(t, wrapped.Error(), "abc")
}

func TestDistinctSentinelsAreNotEqual(t *testing.T) {
	assert.False(t, Is(ErrNotInitialized, ErrInsufficientFunds))
}
