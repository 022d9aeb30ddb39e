package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/neexa/neexa-backend/internal/common"
	"github.com/neexa/neexa-backend/internal/logging"
	"github.com/neexa/neexa-backend/internal/server/models"
	"github.com/neexa/neexa-backend/internal/server/ratelimit"
)

const (
	headerRequestID = "X-Request-ID"
	ctxAccount      = "account"
)

// RequestLogger tags each request with an id and logs its outcome.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)

		start := time.Now()
		c.Next()

		logger.Info(c.Request.Context(), "request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// Recovery turns a handler panic into a generic 500.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error(c.Request.Context(), "panic recovered", "path", c.Request.URL.Path, "panic", recovered)
		abort(c, http.StatusInternalServerError, msgInternal)
	})
}

// RequireJSON rejects POST, PUT and PATCH requests that carry a body in
// anything other than application/json.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}
		if c.Request.ContentLength == 0 {
			c.Next()
			return
		}
		if c.ContentType() != gin.MIMEJSON {
			abort(c, http.StatusBadRequest, "Content-Type must be application/json")
			return
		}
		c.Next()
	}
}

// Timeout bounds the store work done for one request.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RateLimit allows a bounded number of requests per client IP in scope.
// A limiter backend outage lets the request through.
func RateLimit(l ratelimit.Limiter, scope string, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		err := l.Allow(c.Request.Context(), scope+":"+c.ClientIP())
		switch {
		case err == nil:
		case errors.Is(err, common.ErrRateLimited):
			abort(c, http.StatusTooManyRequests, "Too many requests")
			return
		default:
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "scope", scope, "error", err)
		}
		c.Next()
	}
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(c *gin.Context) (string, error) {
	h := strings.TrimSpace(c.GetHeader(common.AuthorizationHeaderName))
	if h == "" {
		return "", common.ErrTokenMissing
	}
	n := len(common.BearerPrefix)
	if len(h) <= n || !strings.EqualFold(h[:n], common.BearerPrefix) {
		return "", common.ErrInvalidToken
	}
	token := strings.TrimSpace(h[n:])
	if token == "" {
		return "", common.ErrInvalidToken
	}
	return token, nil
}

// RequireAuth admits requests carrying a valid access token for an active,
// unlocked account and stores that account in the context.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			abort(c, http.StatusUnauthorized, tokenMessage(err))
			return
		}
		claims, err := h.issuer.ParseAccess(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, tokenMessage(err))
			return
		}
		id, err := claims.AccountID()
		if err != nil {
			abort(c, http.StatusUnauthorized, tokenMessage(common.ErrInvalidToken))
			return
		}

		acc, err := h.accounts.CurrentAccount(c.Request.Context(), id)
		switch {
		case err == nil:
		case errors.Is(err, common.ErrLocked):
			h.fail(c, err)
			return
		case errors.Is(err, common.ErrorUnauthorized):
			abort(c, http.StatusUnauthorized, "User not found or inactive")
			return
		default:
			h.fail(c, err)
			return
		}

		c.Set(ctxAccount, acc)
		c.Next()
	}
}

// currentAccount returns the account stored by RequireAuth.
func currentAccount(c *gin.Context) *models.Account {
	v, _ := c.Get(ctxAccount)
	acc, _ := v.(*models.Account)
	return acc
}
