package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fathom-backend/internal/platform/apierr"
	"github.com/yungbote/fathom-backend/internal/services"
)

type BiometricHandler struct {
	biometrics services.BiometricService
}

func NewBiometricHandler(biometrics services.BiometricService) *BiometricHandler {
	return &BiometricHandler{biometrics: biometrics}
}

func (h *BiometricHandler) UpsertDays(c *gin.Context) {
	var req struct {
		Days []services.DayInput `json:"days"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.BadRequest("invalid_body", err), "invalid_body")
		return
	}
	written, err := h.biometrics.UpsertDays(c.Request.Context(), req.Days)
	if err != nil {
		RespondError(c, err, "biometric_upsert_failed")
		return
	}
	RespondOK(c, gin.H{"written": written})
}

func (h *BiometricHandler) ListRange(c *gin.Context) {
	var from, to time.Time
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			RespondError(c, apierr.BadRequest("invalid_from", err), "invalid_from")
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			RespondError(c, apierr.BadRequest("invalid_to", err), "invalid_to")
			return
		}
		to = parsed
	}
	days, err := h.biometrics.ListRange(c.Request.Context(), from, to)
	if err != nil {
		RespondError(c, err, "biometric_list_failed")
		return
	}
	RespondOK(c, gin.H{"days": days})
}
