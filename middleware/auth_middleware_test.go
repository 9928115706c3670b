package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/beinus-auth/models"
	"github.com/upb/beinus-auth/services"
	"github.com/upb/beinus-auth/utils"
	"go.uber.org/zap"
)

// MockTokenValidator is a mock implementation of TokenValidator
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateAccess(ctx context.Context, token string) (*models.Identity, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Identity), args.Error(1)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) utils.ErrorResponse {
	t.Helper()
	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func okHandler(t *testing.T, want *models.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, want, IdentityFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
}

func failHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})
}

func TestAuthenticate(t *testing.T) {
	logger := zap.NewNop()
	alice := &models.Identity{Username: "alice", Role: models.RoleUser}

	t.Run("valid bearer token attaches identity", func(t *testing.T) {
		validator := new(MockTokenValidator)
		validator.On("ValidateAccess", mock.Anything, "good").Return(alice, nil)
		mw := NewAuthMiddleware(validator, logger, "/login")

		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer good")
		w := httptest.NewRecorder()

		mw.Authenticate(okHandler(t, alice)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		validator.AssertExpectations(t)
	})

	t.Run("lowercase scheme accepted", func(t *testing.T) {
		validator := new(MockTokenValidator)
		validator.On("ValidateAccess", mock.Anything, "good").Return(alice, nil)
		mw := NewAuthMiddleware(validator, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "bearer good")
		w := httptest.NewRecorder()

		mw.Authenticate(okHandler(t, alice)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("public path skips bearer check", func(t *testing.T) {
		validator := new(MockTokenValidator)
		mw := NewAuthMiddleware(validator, logger, "/login")

		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		w := httptest.NewRecorder()

		mw.Authenticate(okHandler(t, nil)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		validator.AssertNotCalled(t, "ValidateAccess", mock.Anything, mock.Anything)
	})

	t.Run("preflight skips bearer check", func(t *testing.T) {
		validator := new(MockTokenValidator)
		mw := NewAuthMiddleware(validator, logger)

		req := httptest.NewRequest(http.MethodOptions, "/api/me", nil)
		w := httptest.NewRecorder()

		mw.Authenticate(okHandler(t, nil)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	tests := []struct {
		name     string
		header   string
		setup    func(*MockTokenValidator)
		wantCode string
	}{
		{
			name:     "missing header",
			wantCode: "unauthenticated",
		},
		{
			name:     "wrong scheme",
			header:   "Basic YWxpY2U6c2VjcmV0",
			wantCode: "unauthenticated",
		},
		{
			name:     "empty bearer",
			header:   "Bearer ",
			wantCode: "unauthenticated",
		},
		{
			name:   "expired token",
			header: "Bearer old",
			setup: func(m *MockTokenValidator) {
				m.On("ValidateAccess", mock.Anything, "old").Return(nil, services.ErrExpiredToken)
			},
			wantCode: "expired_token",
		},
		{
			name:   "malformed token",
			header: "Bearer junk",
			setup: func(m *MockTokenValidator) {
				m.On("ValidateAccess", mock.Anything, "junk").Return(nil, services.ErrMalformedToken)
			},
			wantCode: "malformed_token",
		},
		{
			name:   "refresh token as bearer",
			header: "Bearer refresh",
			setup: func(m *MockTokenValidator) {
				m.On("ValidateAccess", mock.Anything, "refresh").Return(nil, services.ErrWrongTokenCategory)
			},
			wantCode: "wrong_token_category",
		},
		{
			name:   "plain error",
			header: "Bearer odd",
			setup: func(m *MockTokenValidator) {
				m.On("ValidateAccess", mock.Anything, "odd").Return(nil, errors.New("odd"))
			},
			wantCode: "unauthenticated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" returns 401", func(t *testing.T) {
			validator := new(MockTokenValidator)
			if tt.setup != nil {
				tt.setup(validator)
			}
			mw := NewAuthMiddleware(validator, logger, "/login")

			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			mw.Authenticate(failHandler(t)).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, w).Error)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	logger := zap.NewNop()
	alice := &models.Identity{Username: "alice", Role: models.RoleUser}

	t.Run("already authenticated passes through", func(t *testing.T) {
		validator := new(MockTokenValidator)
		mw := NewAuthMiddleware(validator, logger)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithIdentity(req.Context(), alice))
		w := httptest.NewRecorder()

		mw.RequireAuth(okHandler(t, alice)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		validator.AssertNotCalled(t, "ValidateAccess", mock.Anything, mock.Anything)
	})

	t.Run("validates when anonymous", func(t *testing.T) {
		validator := new(MockTokenValidator)
		validator.On("ValidateAccess", mock.Anything, "good").Return(alice, nil)
		mw := NewAuthMiddleware(validator, logger)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		w := httptest.NewRecorder()

		mw.RequireAuth(okHandler(t, alice)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		mw := NewAuthMiddleware(new(MockTokenValidator), logger)

		w := httptest.NewRecorder()
		mw.RequireAuth(failHandler(t)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	logger := zap.NewNop()
	mw := NewAuthMiddleware(new(MockTokenValidator), logger)

	tests := []struct {
		name     string
		identity *models.Identity
		roles    []models.Role
		wantCode int
	}{
		{"matching role", &models.Identity{Username: "root", Role: models.RoleAdmin}, []models.Role{models.RoleAdmin}, http.StatusOK},
		{"any of several", &models.Identity{Username: "bob", Role: models.RoleUser}, []models.Role{models.RoleAdmin, models.RoleUser}, http.StatusOK},
		{"wrong role", &models.Identity{Username: "bob", Role: models.RoleOrg2}, []models.Role{models.RoleAdmin, models.RoleUser}, http.StatusForbidden},
		{"anonymous", nil, []models.Role{models.RoleAdmin}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := mw.RequireRole(tt.roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.identity != nil {
				req = req.WithContext(WithIdentity(req.Context(), tt.identity))
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, IdentityFromContext(ctx))
	assert.Empty(t, GetRequestIDFromContext(ctx))

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithIdentity(ctx, &models.Identity{Username: "alice", Role: models.RoleUser})

	assert.Equal(t, "req-1", GetRequestIDFromContext(ctx))
	assert.Equal(t, "alice", IdentityFromContext(ctx).Username)
}
