package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumandas0/farmstore/pkg/utils"
)

func TestHTTPErrorFromAppError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", utils.NewAppError(utils.CodeNotFound, "missing", nil), http.StatusNotFound},
		{"unknown collection", utils.NewAppError(utils.CodeUnknownCollection, "nope", nil), http.StatusNotFound},
		{"conflict", utils.NewAppError(utils.CodeAlreadyExists, "dup", nil), http.StatusConflict},
		{"stale version", utils.NewAppError(utils.CodeConcurrentModification, "stale", nil), http.StatusConflict},
		{"invalid query", utils.NewAppError(utils.CodeInvalidQuery, "bad", nil), http.StatusBadRequest},
		{"validation", utils.NewAppError(utils.CodeValidation, "bad", nil), http.StatusBadRequest},
		{"unavailable", utils.NewAppError(utils.CodeUnavailable, "open", nil), http.StatusServiceUnavailable},
		{"timeout", utils.NewAppError(utils.CodeTimeout, "slow", nil), http.StatusGatewayTimeout},
		{"wrapped app error", fmt.Errorf("commit: %w", utils.NewAppError(utils.CodeAlreadyExists, "dup", nil)), http.StatusConflict},
		{"sentinel", fmt.Errorf("lookup: %w", utils.ErrNotFound), http.StatusNotFound},
		{"deadline", fmt.Errorf("load: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPErrorFromAppError(tt.err))
		})
	}
}

func TestSendAppError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()

	err := utils.NewAppError(utils.CodeInvalidQuery, "unknown sort field", nil).WithDetail("field", "colour")
	SendAppError(w, req, fmt.Errorf("query: %w", err))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, utils.CodeInvalidQuery, resp.Error.Code)
	assert.Equal(t, "unknown sort field", resp.Error.Message)
	assert.Equal(t, "colour", resp.Error.Details["field"])
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.False(t, resp.Error.Timestamp.IsZero())
}

func TestErrorHandler_RecoversPanic(t *testing.T) {
	handler := ErrorHandler(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, utils.CodeInternal, resp.Error.Code)
}
