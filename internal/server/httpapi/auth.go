package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/neexa/neexa-backend/internal/common"
	"github.com/neexa/neexa-backend/internal/server/models"
	"github.com/neexa/neexa-backend/internal/server/services"
)

type registerRequest struct {
	Email             string  `json:"email" binding:"required,max=120"`
	Password          string  `json:"password" binding:"required,max=128"`
	ConfirmPassword   string  `json:"confirm_password" binding:"required"`
	FirstName         string  `json:"first_name" binding:"required,max=50"`
	LastName          string  `json:"last_name" binding:"required,max=50"`
	Phone             *string `json:"phone" binding:"omitempty,max=20"`
	DateOfBirth       *string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	PreferredCurrency string  `json:"preferred_currency" binding:"omitempty,len=3"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (loginRequest) requiredMessage() string { return "Email and password are required" }

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

func (tokenRequest) requiredMessage() string { return "Token is required" }

type emailRequest struct {
	Email string `json:"email" binding:"required"`
}

func (emailRequest) requiredMessage() string { return "Email is required" }

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,max=128"`
}

func (resetPasswordRequest) requiredMessage() string { return "Token and password are required" }

// parseDate reads an optional YYYY-MM-DD value. Empty means unset.
func parseDate(field string, s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := time.Parse(models.DateLayout, strings.TrimSpace(*s))
	if err != nil {
		return nil, common.NewValidationError(field, "Not a valid date.")
	}
	return &t, nil
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if !h.bind(c, &req) {
		return
	}
	dob, err := parseDate("date_of_birth", req.DateOfBirth)
	if err != nil {
		h.fail(c, err)
		return
	}

	acc, pair, err := h.accounts.Register(c.Request.Context(), services.RegisterInput{
		Email:             req.Email,
		Password:          req.Password,
		ConfirmPassword:   req.ConfirmPassword,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Phone:             req.Phone,
		DateOfBirth:       dob,
		PreferredCurrency: req.PreferredCurrency,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":       "User registered successfully",
		"user":          acc.Profile(),
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}

	acc, pair, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Login successful",
		"user":          acc.Profile(),
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// refresh trades the Bearer refresh token for a new access token.
func (h *Handler) refresh(c *gin.Context) {
	token, err := bearerToken(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	access, err := h.accounts.Refresh(c.Request.Context(), token)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": access, "message": "Token refreshed successfully"})
}

// logout only acknowledges; clients drop their tokens.
func (h *Handler) logout(c *gin.Context) {
	acc := currentAccount(c)
	h.logger.Info(c.Request.Context(), "account logged out", "email", acc.Email)
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": currentAccount(c).Profile()})
}

// verifyToken reports whether the access token in the body is usable.
func (h *Handler) verifyToken(c *gin.Context) {
	var req tokenRequest
	if c.Request.ContentLength != 0 {
		var verrs validator.ValidationErrors
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) && !errors.As(err, &verrs) {
			abort(c, http.StatusBadRequest, "Invalid JSON body")
			return
		}
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": "Token is required"})
		return
	}

	claims, err := h.issuer.ParseAccess(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": tokenMessage(err)})
		return
	}
	id, err := claims.AccountID()
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": tokenMessage(common.ErrInvalidToken)})
		return
	}
	acc, err := h.accounts.CurrentAccount(c.Request.Context(), id)
	if err != nil {
		var svcErr *services.Error
		if errors.As(err, &svcErr) {
			c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": svcErr.Message})
			return
		}
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true, "user": acc.Profile()})
}

// forgotPassword answers the same way whether or not the email is known.
func (h *Handler) forgotPassword(c *gin.Context) {
	var req emailRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.resets.RequestReset(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the email exists, a reset link has been sent"})
}

func (h *Handler) verifyResetToken(c *gin.Context) {
	var req tokenRequest
	if !h.bind(c, &req) {
		return
	}

	err := h.resets.VerifyResetToken(c.Request.Context(), req.Token)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"valid": true, "message": "Token is valid"})
	case errors.Is(err, services.ErrResetTokenNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "message": "Invalid token"})
	case errors.Is(err, services.ErrResetTokenExpired), errors.Is(err, services.ErrResetTokenUsed):
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "message": err.Error()})
	default:
		h.fail(c, err)
	}
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.resets.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset successfully"})
}
