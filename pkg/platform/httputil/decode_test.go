package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "saldo/pkg/domain-errors"
)

type lookupRequest struct {
	Document string `json:"document"`
	Benefit  string `json:"benefit"`
}

func (r *lookupRequest) Normalize() {
	r.Document = strings.TrimSpace(r.Document)
}

func (r *lookupRequest) Validate() error {
	if r.Document == "" {
		return errors.New("document is required")
	}
	return nil
}

type domainValidatedRequest struct {
	Login string `json:"login"`
}

func (r *domainValidatedRequest) Validate() error {
	return dErrors.New(dErrors.CodeInvalidInput, "login is malformed")
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("normalizes and validates", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"document":"  123.456.789-09 ","benefit":"1"}`))
		w := httptest.NewRecorder()

		result, ok := DecodeAndPrepare[lookupRequest](w, req, logger, ctx, "req-1")

		require.True(t, ok)
		assert.Equal(t, "123.456.789-09", result.Document)
	})

	t.Run("invalid JSON is a bad request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{invalid`))
		w := httptest.NewRecorder()

		result, ok := DecodeAndPrepare[lookupRequest](w, req, logger, ctx, "req-2")

		assert.False(t, ok)
		assert.Nil(t, result)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, string(dErrors.CodeBadRequest), decodeError(t, w).Error)
	})

	t.Run("plain validation error becomes validation_failed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"document":"   "}`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[lookupRequest](w, req, logger, ctx, "req-3")

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, string(dErrors.CodeValidation), body.Error)
		assert.Equal(t, "document is required", body.ErrorDescription)
	})

	t.Run("domain validation error keeps its code", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"login":"x"}`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[domainValidatedRequest](w, req, logger, ctx, "req-4")

		assert.False(t, ok)
		assert.Equal(t, string(dErrors.CodeInvalidInput), decodeError(t, w).Error)
	})

	t.Run("oversized body is rejected", func(t *testing.T) {
		big := `{"document":"` + strings.Repeat("1", MaxBodyBytes) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(big))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[lookupRequest](w, req, logger, ctx, "req-5")

		assert.False(t, ok)
	})
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		code   dErrors.Code
		status int
	}{
		{dErrors.CodeValidation, http.StatusBadRequest},
		{dErrors.CodeUserNotFound, http.StatusNotFound},
		{dErrors.CodeNoCreditRelationship, http.StatusBadRequest},
		{dErrors.CodeInsufficientCredit, http.StatusPaymentRequired},
		{dErrors.CodeExternalUnavailable, http.StatusServiceUnavailable},
		{dErrors.CodeUnmatchedIdentity, http.StatusUnprocessableEntity},
		{dErrors.CodePersistenceFailure, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, dErrors.New(tc.code, "message"))
			assert.Equal(t, tc.status, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, string(tc.code), body.Error)
			assert.Equal(t, "message", body.ErrorDescription)
		})
	}

	t.Run("non-domain errors hide their message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("dial tcp 10.0.0.1:5432: refused"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Empty(t, decodeError(t, w).ErrorDescription)
	})
}
