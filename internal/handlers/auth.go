package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fathom-backend/internal/platform/apierr"
	"github.com/yungbote/fathom-backend/internal/requestdata"
	"github.com/yungbote/fathom-backend/internal/services"
)

type AuthHandler struct {
	auth services.AuthService
}

func NewAuthHandler(auth services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.BadRequest("invalid_body", err), "invalid_body")
		return
	}
	user, pair, err := h.auth.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		RespondError(c, err, "register_failed")
		return
	}
	RespondOK(c, gin.H{"user": user, "tokens": pair})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.BadRequest("invalid_body", err), "invalid_body")
		return
	}
	user, pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondError(c, err, "login_failed")
		return
	}
	RespondOK(c, gin.H{"user": user, "tokens": pair})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		RespondError(c, apierr.BadRequest("refresh_token_required", fmt.Errorf("refresh_token missing")), "refresh_token_required")
		return
	}
	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondError(c, err, "refresh_failed")
		return
	}
	RespondOK(c, gin.H{"tokens": pair})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())
	if err := h.auth.Logout(c.Request.Context(), userID); err != nil {
		RespondError(c, err, "logout_failed")
		return
	}
	RespondOK(c, gin.H{"success": true})
}
