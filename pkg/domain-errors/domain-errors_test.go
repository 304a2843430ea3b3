package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("dial tcp: connection refused")

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "insufficient credit", New(CodeInsufficientCredit, "insufficient credit").Error())
	assert.Equal(t, "unmatched_identity", (&Error{Code: CodeUnmatchedIdentity}).Error(), "falls back to the code")
}

func TestWrap(t *testing.T) {
	t.Run("infrastructure error takes the given code", func(t *testing.T) {
		err := Wrap(fmt.Errorf("append record: %w", errStoreDown), CodePersistenceFailure, "failed to store query record")

		assert.Equal(t, CodePersistenceFailure, CodeOf(err))
		assert.Equal(t, "failed to store query record", err.Error())
		assert.ErrorIs(t, err, errStoreDown)
	})

	t.Run("domain error keeps its code under a new message", func(t *testing.T) {
		inner := New(CodeExternalUnavailable, "balance service unavailable")
		err := Wrap(inner, CodeTimeout, "request ended before the query finished")

		assert.Equal(t, CodeExternalUnavailable, CodeOf(err))
		assert.Equal(t, "request ended before the query finished", err.Error())
		assert.Same(t, inner, errors.Unwrap(err))
	})
}

func TestMatching(t *testing.T) {
	err := Wrap(New(CodeNoCreditRelationship, "no credit relationship"), CodeInternal, "check credit")

	t.Run("errors.Is matches by code through the chain", func(t *testing.T) {
		assert.ErrorIs(t, err, &Error{Code: CodeNoCreditRelationship})
		assert.NotErrorIs(t, err, &Error{Code: CodeInsufficientCredit})
		assert.NotErrorIs(t, err, errors.New("no credit relationship"))
	})

	t.Run("HasCode reads the outermost domain error", func(t *testing.T) {
		assert.True(t, HasCode(err, CodeNoCreditRelationship))
		assert.False(t, HasCode(err, CodeUserNotFound))
		assert.False(t, HasCode(errStoreDown, CodeInternal))
		assert.False(t, HasCode(nil, CodeNotFound))
	})

	t.Run("errors.As exposes the fields", func(t *testing.T) {
		var de *Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, CodeNoCreditRelationship, de.Code)
		assert.Equal(t, "check credit", de.Message)
	})
}

func TestCodeOf(t *testing.T) {
	tests := map[string]struct {
		err  error
		want Code
	}{
		"domain error":       {New(CodeUserNotFound, "user not found"), CodeUserNotFound},
		"fmt wrapped domain": {fmt.Errorf("submit: %w", New(CodeValidation, "document is required")), CodeValidation},
		"plain error":        {errStoreDown, CodeInternal},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, CodeOf(tc.err))
		})
	}
}
