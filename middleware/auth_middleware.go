package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/upb/beinus-auth/models"
	"github.com/upb/beinus-auth/services"
	"github.com/upb/beinus-auth/utils"
	"go.uber.org/zap"
)

// TokenValidator validates a bearer access token and returns the identity it carries
type TokenValidator interface {
	ValidateAccess(ctx context.Context, token string) (*models.Identity, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	validator TokenValidator
	logger    *zap.Logger
	public    map[string]struct{}
}

// NewAuthMiddleware creates a new AuthMiddleware. Requests for publicPaths
// pass through Authenticate without a bearer check.
func NewAuthMiddleware(validator TokenValidator, logger *zap.Logger, publicPaths ...string) *AuthMiddleware {
	public := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = struct{}{}
	}
	return &AuthMiddleware{
		validator: validator,
		logger:    logger,
		public:    public,
	}
}

// Authenticate runs on every request. Public paths and CORS preflights are
// passed through anonymously; everything else needs a valid access token.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || m.isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		m.authenticate(w, r, next)
	})
}

// RequireAuth requires a valid access token on every request it wraps.
// Requests already authenticated upstream are passed through.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}
		m.authenticate(w, r, next)
	})
}

// RequireRole is a middleware that requires the identity to hold one of roles
func (m *AuthMiddleware) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			identity := IdentityFromContext(ctx)
			if identity == nil {
				m.logger.Error("identity not found in context",
					zap.String("request_id", requestID))
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			if !identity.HasAnyRole(roles...) {
				m.logger.Warn("insufficient permissions",
					zap.String("request_id", requestID),
					zap.String("username", identity.Username),
					zap.String("role", identity.Role.String()))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (m *AuthMiddleware) authenticate(w http.ResponseWriter, r *http.Request, next http.Handler) {
	ctx := r.Context()
	requestID := GetRequestIDFromContext(ctx)

	token := extractBearerToken(r)
	if token == "" {
		m.logger.Debug("missing bearer token",
			zap.String("request_id", requestID),
			zap.String("path", r.URL.Path))
		writeAuthError(w, services.ErrUnauthenticated)
		return
	}

	identity, err := m.validator.ValidateAccess(ctx, token)
	if err != nil {
		m.logger.Warn("token validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		writeAuthError(w, err)
		return
	}

	m.logger.Debug("authentication successful",
		zap.String("request_id", requestID),
		zap.String("username", identity.Username),
		zap.String("role", identity.Role.String()))

	next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
}

func (m *AuthMiddleware) isPublic(path string) bool {
	_, ok := m.public[path]
	return ok
}

// writeAuthError answers an access-path failure. Token and credential
// failures are all 401; only server faults escape as 500.
func writeAuthError(w http.ResponseWriter, err error) {
	if services.IsInternalError(err) {
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	code := string(services.GetErrorCode(err))
	message := services.GetErrorMessage(err)
	if code == "" {
		code = string(services.CodeUnauthenticated)
		message = services.ErrUnauthenticated.Message
	}
	_ = utils.WriteError(w, http.StatusUnauthorized, code, message, nil)
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
