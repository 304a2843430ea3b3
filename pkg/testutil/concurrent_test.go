package testutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"saldo/internal/sentinel"
	dErrors "saldo/pkg/domain-errors"
)

func TestRunConcurrent_Buckets(t *testing.T) {
	result := RunConcurrent(8, func(idx int) error {
		switch idx % 4 {
		case 0:
			return nil
		case 1:
			return fmt.Errorf("debit: %w", sentinel.ErrInsufficientCredit)
		case 2:
			return dErrors.New(dErrors.CodeNotFound, "missing")
		default:
			return errors.New("boom")
		}
	})

	assert.Equal(t, int32(2), result.Successes)
	assert.Equal(t, int32(2), result.Insufficient)
	assert.Equal(t, int32(2), result.NotFounds)
	assert.Equal(t, int32(2), result.Errors)
	assert.Equal(t, int32(8), result.Total())
}

func TestRunConcurrentCollect(t *testing.T) {
	successes, errs := RunConcurrentCollect(5, func(idx int) error {
		if idx == 0 {
			return errors.New("first")
		}
		return nil
	})
	assert.Equal(t, int32(4), successes)
	assert.Len(t, errs, 1)
}
