package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/beinus-auth/services"
	"github.com/upb/beinus-auth/utils"
	"go.uber.org/zap"
)

func decodeErrorResponse(t *testing.T, w *httptest.ResponseRecorder) utils.ErrorResponse {
	t.Helper()
	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{"credential mismatch", services.ErrCredentialMismatch, http.StatusUnauthorized, "credential_mismatch"},
		{"expired token", services.ErrExpiredToken, http.StatusUnauthorized, "expired_token"},
		{"missing refresh token", services.ErrMissingRefreshToken, http.StatusBadRequest, "missing_refresh_token"},
		{"invalid input", services.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
		{"username taken", services.ErrUsernameTaken, http.StatusConflict, "username_taken"},
		{"storage failure", services.ErrStorageFailure.Wrap(errors.New("timeout")), http.StatusInternalServerError, "storage_failure"},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedError, decodeErrorResponse(t, w).Error)
		})
	}

	t.Run("nil error writes nothing", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleServiceError(w, nil, logger)
		assert.Empty(t, w.Body.String())
	})

	t.Run("internal cause is not leaked", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleServiceError(w, services.ErrStorageFailure.Wrap(errors.New("pq: password authentication failed")), logger)

		assert.NotContains(t, w.Body.String(), "pq:")
	})
}

func TestHandleReissueError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedError   string
		expectedMessage string
	}{
		{"missing", services.ErrMissingRefreshToken, http.StatusBadRequest, "missing_refresh_token", "refresh token missing"},
		{"expired", services.ErrExpiredToken, http.StatusBadRequest, "expired_token", "token expired"},
		{"malformed", services.ErrMalformedToken.Wrap(errors.New("bad sig")), http.StatusBadRequest, "malformed_token", "invalid token"},
		{"wrong category", services.ErrWrongTokenCategory, http.StatusBadRequest, "wrong_token_category", "wrong token category"},
		{"revoked", services.ErrRevokedOrUnknownToken, http.StatusBadRequest, "revoked_or_unknown_token", "refresh token revoked or unknown"},
		{"storage failure", services.ErrStorageFailure, http.StatusInternalServerError, "storage_failure", "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			HandleReissueError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)
			response := decodeErrorResponse(t, w)
			assert.Equal(t, tt.expectedError, response.Error)
			assert.Equal(t, tt.expectedMessage, response.Message)
		})
	}
}

func TestHandleValidationError(t *testing.T) {
	logger := zap.NewNop()

	t.Run("field errors become details", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := &utils.ValidationError{Message: "Validation failed", Fields: map[string]string{"username": "username is required"}}

		HandleValidationError(w, err, logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		response := decodeErrorResponse(t, w)
		assert.Equal(t, "invalid_input", response.Error)
		assert.Equal(t, "username is required", response.Details["username"])
	})

	t.Run("decode error", func(t *testing.T) {
		w := httptest.NewRecorder()

		HandleValidationError(w, errors.New("unexpected EOF"), logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid request body", decodeErrorResponse(t, w).Message)
	})
}
