package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapfKeepsSentinel(t *testing.T) {
	sentinel := New(KindInsufficientStock, "insufficient_stock")
	err := Wrapf(sentinel, "batch %d has %d", 7, 1)

	assert.True(t, errors.Is(err, sentinel))
	assert.Equal(t, "insufficient_stock: batch 7 has 1", err.Error())
	assert.Equal(t, KindInsufficientStock, KindOf(err))
	assert.Equal(t, "insufficient_stock", CodeOf(err))
}

func TestKindOfWrappedByFmt(t *testing.T) {
	sentinel := New(KindForbidden, "forbidden_invoice")
	err := fmt.Errorf("load invoice: %w", sentinel)

	assert.Equal(t, KindForbidden, KindOf(err))
	assert.True(t, Is(err, KindForbidden))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, "", CodeOf(errors.New("boom")))
}
