package handlers

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"

	"github.com/upb/beinus-auth/config"
	"github.com/upb/beinus-auth/middleware"
	"github.com/upb/beinus-auth/models"
	"github.com/upb/beinus-auth/services"
	"github.com/upb/beinus-auth/utils"
	"go.uber.org/zap"
)

// maxBodyBytes caps login and join payloads
const maxBodyBytes = 1 << 16

// CredentialAuthenticator verifies a username/password pair
type CredentialAuthenticator interface {
	Authenticate(ctx context.Context, username, password string) (*models.Identity, error)
}

// PrincipalRegistrar creates new principals
type PrincipalRegistrar interface {
	Register(ctx context.Context, username, password, orgCode string) (*models.Identity, error)
}

// TokenIssuer issues, rotates and revokes token pairs
type TokenIssuer interface {
	IssuePair(ctx context.Context, identity *models.Identity) (*services.TokenPair, error)
	Reissue(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Revoke(ctx context.Context, refreshToken string) error
}

// LoginRequest is accepted as JSON or as form fields
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

// JoinRequest registers a new principal
type JoinRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64,printascii,excludesall= "`
	Password string `json:"password" validate:"required,min=4,max=72"`
	Org      string `json:"org" validate:"max=32"`
}

// TokenResponse is the body of a successful login or reissue.
// The Authorization header and refresh cookie carry the same tokens.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// IdentityResponse describes an authenticated or newly registered principal
type IdentityResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Message  string `json:"message,omitempty"`
}

// AuthHandler serves login, reissue, logout and registration
type AuthHandler struct {
	authenticator CredentialAuthenticator
	registrar     PrincipalRegistrar
	tokens        TokenIssuer
	cookie        config.CookieConfig
	logger        *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	authenticator CredentialAuthenticator,
	registrar PrincipalRegistrar,
	tokens TokenIssuer,
	cookie config.CookieConfig,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		authenticator: authenticator,
		registrar:     registrar,
		tokens:        tokens,
		cookie:        cookie,
		logger:        logger,
	}
}

// HandleLogin handles POST /login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	req, err := decodeLoginRequest(w, r)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	identity, err := h.authenticator.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		h.logger.Info("login failed",
			zap.String("request_id", requestID),
			zap.String("username", req.Username),
			zap.String("code", string(services.GetErrorCode(err))))
		HandleServiceError(w, err, h.logger)
		return
	}

	pair, err := h.tokens.IssuePair(ctx, identity)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("login succeeded",
		zap.String("request_id", requestID),
		zap.String("username", identity.Username),
		zap.String("role", identity.Role.String()))

	h.writeTokens(w, pair)
}

// HandleReissue handles POST /reissue. The refresh token is read from its cookie only.
func (h *AuthHandler) HandleReissue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pair, err := h.tokens.Reissue(ctx, h.refreshCookieValue(r))
	if err != nil {
		h.logger.Info("reissue rejected",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.String("code", string(services.GetErrorCode(err))))
		HandleReissueError(w, err, h.logger)
		return
	}

	h.writeTokens(w, pair)
}

// HandleLogout handles POST /logout. It succeeds for unknown tokens.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.Revoke(r.Context(), h.refreshCookieValue(r)); err != nil {
		HandleReissueError(w, err, h.logger)
		return
	}

	http.SetCookie(w, h.refreshCookie("", -1))
	_ = utils.WriteOK(w, map[string]string{"message": "logged out"})
}

// HandleJoin handles POST /join
func (h *AuthHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	identity, err := h.registrar.Register(r.Context(), req.Username, req.Password, req.Org)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, IdentityResponse{
		Username: identity.Username,
		Role:     identity.Role.String(),
	})
}

func (h *AuthHandler) writeTokens(w http.ResponseWriter, pair *services.TokenPair) {
	maxAge := pair.RefreshMaxAge()
	if maxAge <= 0 {
		maxAge = -1
	}

	w.Header().Set("Authorization", "Bearer "+pair.AccessToken)
	w.Header().Set("Cache-Control", "no-store")
	http.SetCookie(w, h.refreshCookie(pair.RefreshToken, maxAge))

	_ = utils.WriteOK(w, TokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   pair.AccessExpiresIn(),
	})
}

func (h *AuthHandler) refreshCookieValue(r *http.Request) string {
	c, err := r.Cookie(h.cookie.Name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *AuthHandler) refreshCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     h.cookie.Path,
		Domain:   h.cookie.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSiteMode(),
	}
}

// decodeLoginRequest reads credentials from a JSON body or from form fields
func decodeLoginRequest(w http.ResponseWriter, r *http.Request) (*LoginRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return &LoginRequest{
			Username: r.PostFormValue("username"),
			Password: r.PostFormValue("password"),
		}, nil
	default:
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, err
		}
		return &req, nil
	}
}
