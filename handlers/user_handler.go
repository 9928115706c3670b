package handlers

import (
	"net/http"

	"github.com/upb/beinus-auth/middleware"
	"github.com/upb/beinus-auth/utils"
	"go.uber.org/zap"
)

// UserHandler serves endpoints that describe the caller
type UserHandler struct {
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(logger *zap.Logger) *UserHandler {
	return &UserHandler{logger: logger}
}

// HandleMe handles GET /api/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	h.writeIdentity(w, r, "")
}

// HandleAdmin handles GET /admin
func (h *UserHandler) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	h.writeIdentity(w, r, "admin area")
}

// HandleMy handles GET /my
func (h *UserHandler) HandleMy(w http.ResponseWriter, r *http.Request) {
	h.writeIdentity(w, r, "member area")
}

func (h *UserHandler) writeIdentity(w http.ResponseWriter, r *http.Request, message string) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		h.logger.Error("identity missing on protected route", zap.String("path", r.URL.Path))
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	_ = utils.WriteOK(w, IdentityResponse{
		Username: identity.Username,
		Role:     identity.Role.String(),
		Message:  message,
	})
}
