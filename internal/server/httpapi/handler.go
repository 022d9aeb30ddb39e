// Package httpapi exposes the account and password reset services as a
// JSON API served by gin.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neexa/neexa-backend/internal/logging"
	"github.com/neexa/neexa-backend/internal/server/auth"
	"github.com/neexa/neexa-backend/internal/server/models"
	"github.com/neexa/neexa-backend/internal/server/ratelimit"
	"github.com/neexa/neexa-backend/internal/server/services"
)

// AccountService is the part of services.AccountService the API calls.
type AccountService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.Account, *auth.TokenPair, error)
	Login(ctx context.Context, email, pw string) (*models.Account, *auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	ChangePassword(ctx context.Context, accountID int64, current, newPw, confirm string) error
	Deactivate(ctx context.Context, accountID int64) error
	GetProfile(ctx context.Context, accountID int64) (*models.Account, error)
	UpdateProfile(ctx context.Context, accountID int64, u services.ProfileUpdate) (*models.Account, error)
	CurrentAccount(ctx context.Context, accountID int64) (*models.Account, error)
}

// ResetService is the part of services.ResetService the API calls.
type ResetService interface {
	RequestReset(ctx context.Context, email string) error
	VerifyResetToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, token, newPw string) error
}

// Options configures the router.
type Options struct {
	Accounts       AccountService
	Resets         ResetService
	Issuer         *auth.Issuer
	Limiter        ratelimit.Limiter
	Logger         logging.Logger
	RequestTimeout time.Duration
}

// Handler serves the JSON API.
type Handler struct {
	accounts AccountService
	resets   ResetService
	issuer   *auth.Issuer
	limiter  ratelimit.Limiter
	logger   logging.Logger
}

// NewRouter builds the gin engine with every route and middleware.
func NewRouter(o Options) *gin.Engine {
	logger := o.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	h := &Handler{
		accounts: o.Accounts,
		resets:   o.Resets,
		issuer:   o.Issuer,
		limiter:  o.Limiter,
		logger:   logger.With("module", "http_api"),
	}

	useJSONFieldNames()

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(RequestLogger(h.logger), Recovery(h.logger), RequireJSON(), Timeout(o.RequestTimeout))

	r.NoRoute(func(c *gin.Context) { abort(c, http.StatusNotFound, "Endpoint not found") })
	r.NoMethod(func(c *gin.Context) { abort(c, http.StatusMethodNotAllowed, "Method not allowed") })

	r.GET("/health", h.health)
	r.GET("/api", h.index)

	a := r.Group("/api/auth")
	a.POST("/register", h.register)
	a.POST("/login", RateLimit(h.limiter, "login", h.logger), h.login)
	a.POST("/refresh", h.refresh)
	a.POST("/logout", h.RequireAuth(), h.logout)
	a.GET("/me", h.RequireAuth(), h.me)
	a.POST("/verify-token", h.verifyToken)
	a.POST("/forgot-password", RateLimit(h.limiter, "forgot", h.logger), h.forgotPassword)
	a.POST("/verify-reset-token", RateLimit(h.limiter, "reset", h.logger), h.verifyResetToken)
	a.POST("/reset-password", RateLimit(h.limiter, "reset", h.logger), h.resetPassword)

	u := r.Group("/api/user", h.RequireAuth())
	u.GET("/profile", h.getProfile)
	u.PUT("/profile", h.updateProfile)
	u.POST("/change-password", h.changePassword)
	u.POST("/deactivate", h.deactivate)

	return r
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "message": "Neexa Backend API is running"})
}

func (h *Handler) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Neexa Backend API",
		"version":     "1.0.0",
		"description": "Backend API for Neexa financial application",
		"endpoints": gin.H{
			"auth":   "/api/auth",
			"user":   "/api/user",
			"health": "/health",
		},
	})
}
