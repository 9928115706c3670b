package handlers

import (
	"net/http"

	"github.com/upb/beinus-auth/services"
	"github.com/upb/beinus-auth/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	code := string(services.GetErrorCode(err))
	message := services.GetErrorMessage(err)
	details := services.GetErrorDetails(err)

	var status int
	switch {
	case services.IsValidationError(err):
		status = http.StatusBadRequest
	case services.IsUnauthorizedError(err):
		status = http.StatusUnauthorized
	case services.IsConflictError(err):
		status = http.StatusConflict
	case services.IsInternalError(err):
		// Log internal errors but return generic message
		logger.Error("internal server error", zap.Error(err))
		status, message, details = http.StatusInternalServerError, "An internal error occurred", nil
	default:
		logger.Error("unhandled error type", zap.Error(err))
		status, code, message, details = http.StatusInternalServerError, string(services.CodeInternal), "An unexpected error occurred", nil
	}

	if err := utils.WriteError(w, status, code, message, details); err != nil {
		logger.Error("failed to write error response", zap.Error(err))
	}
}

// HandleReissueError maps failures on the reissue path. Token problems are
// client faults answered with 400; each keeps its own code and message so a
// caller can tell natural expiry from a revoked or tampered token.
func HandleReissueError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if services.IsUnauthorizedError(err) || services.IsValidationError(err) {
		if err := utils.WriteError(w, http.StatusBadRequest,
			string(services.GetErrorCode(err)), services.GetErrorMessage(err), nil); err != nil {
			logger.Error("failed to write reissue error response", zap.Error(err))
		}
		return
	}
	HandleServiceError(w, err, logger)
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteError(w, http.StatusBadRequest, string(services.CodeInvalidInput), "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteError(w, http.StatusBadRequest, string(services.CodeInvalidInput), "Invalid request body", nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
