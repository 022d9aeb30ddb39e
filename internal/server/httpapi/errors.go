package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neexa/neexa-backend/internal/common"
	"github.com/neexa/neexa-backend/internal/server/password"
	"github.com/neexa/neexa-backend/internal/server/services"
)

const msgInternal = "Internal server error"

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrAlreadyUsed):
		return http.StatusBadRequest, true
	case errors.Is(err, common.ErrAlreadyExists):
		return http.StatusConflict, true
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, common.ErrLocked):
		return http.StatusLocked, true
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, true
	case errors.Is(err, common.ErrRateLimited):
		return http.StatusTooManyRequests, true
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenMissing):
		return http.StatusUnauthorized, true
	}
	return 0, false
}

// tokenMessage returns the client message for a session token failure.
func tokenMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrTokenMissing):
		return "Authorization token is required"
	case errors.Is(err, common.ErrTokenExpired):
		return "Token has expired"
	default:
		return "Invalid token"
	}
}

// fail writes err as a JSON error response. Unknown errors are logged and
// reported as a generic 500.
func (h *Handler) fail(c *gin.Context, err error) {
	var (
		policyErr *password.PolicyError
		fieldErr  *common.ValidationError
		svcErr    *services.Error
	)

	switch {
	case errors.As(err, &policyErr):
		abort(c, http.StatusBadRequest, policyErr.Error())
		return
	case errors.As(err, &fieldErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": fieldErr.Fields})
		return
	case errors.Is(err, services.ErrResetTokenNotFound),
		errors.Is(err, services.ErrResetTokenExpired),
		errors.Is(err, services.ErrResetTokenUsed):
		abort(c, http.StatusBadRequest, err.Error())
		return
	case errors.As(err, &svcErr):
		if status, ok := statusFor(svcErr.Kind); ok {
			abort(c, status, svcErr.Message)
			return
		}
	case errors.Is(err, common.ErrRateLimited):
		abort(c, http.StatusTooManyRequests, "Too many requests")
		return
	case errors.Is(err, common.ErrTokenMissing),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrInvalidToken):
		abort(c, http.StatusUnauthorized, tokenMessage(err))
		return
	}

	h.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	abort(c, http.StatusInternalServerError, msgInternal)
}
