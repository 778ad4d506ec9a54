package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreErrorMatchesDatabaseSentinel(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := fmt.Errorf("saving signal: %w", NewStoreError("insert", "trading_signals", cause))

	assert.True(t, Is(err, ErrDatabaseError))
	assert.True(t, Is(err, cause))
	assert.Contains(t, err.Error(), "insert trading_signals")
}

func TestDataErrorUnwrap(t *testing.T) {
	err := NewDataError("option_chain", "NIFTY", "no spot price", ErrNoSpotPrice)

	var de *DataError
	assert.True(t, As(err, &de))
	assert.Equal(t, "NIFTY", de.Symbol)
	assert.True(t, Is(err, ErrNoSpotPrice))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
	assert.EqualError(t, Wrapf(ErrEmptyChain, "symbol %s", "TCS"), "symbol TCS: options chain has no strikes")
}
