package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neexa/neexa-backend/internal/server/services"
)

type profileRequest struct {
	FirstName         *string `json:"first_name" binding:"omitempty,max=50"`
	LastName          *string `json:"last_name" binding:"omitempty,max=50"`
	Phone             *string `json:"phone" binding:"omitempty,max=20"`
	DateOfBirth       *string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	PreferredCurrency *string `json:"preferred_currency" binding:"omitempty,len=3"`
}

type changePasswordRequest struct {
	CurrentPassword    string `json:"current_password" binding:"required"`
	NewPassword        string `json:"new_password" binding:"required,max=128"`
	ConfirmNewPassword string `json:"confirm_new_password" binding:"required"`
}

func (changePasswordRequest) requiredMessage() string {
	return "Current password, new password and confirmation are required"
}

func (h *Handler) getProfile(c *gin.Context) {
	acc, err := h.accounts.GetProfile(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": acc.Profile()})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req profileRequest
	if !h.bind(c, &req) {
		return
	}
	dob, err := parseDate("date_of_birth", req.DateOfBirth)
	if err != nil {
		h.fail(c, err)
		return
	}

	acc, err := h.accounts.UpdateProfile(c.Request.Context(), currentAccount(c).ID, services.ProfileUpdate{
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
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": acc.Profile()})
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if !h.bind(c, &req) {
		return
	}

	err := h.accounts.ChangePassword(c.Request.Context(), currentAccount(c).ID,
		req.CurrentPassword, req.NewPassword, req.ConfirmNewPassword)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

func (h *Handler) deactivate(c *gin.Context) {
	if err := h.accounts.Deactivate(c.Request.Context(), currentAccount(c).ID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deactivated successfully"})
}
