package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/fathom-backend/internal/platform/apierr"
	"github.com/yungbote/fathom-backend/internal/services"
)

type InsightHandler struct {
	insights services.InsightService
}

func NewInsightHandler(insights services.InsightService) *InsightHandler {
	return &InsightHandler{insights: insights}
}

// Generate runs a full synchronous regeneration and returns the fresh
// categories plus the data-status block.
func (h *InsightHandler) Generate(c *gin.Context) {
	result, err := h.insights.Generate(c.Request.Context())
	if err != nil {
		RespondError(c, err, "insight_generate_failed")
		return
	}
	RespondOK(c, result)
}

// Cached returns the persisted insight documents without regenerating.
func (h *InsightHandler) Cached(c *gin.Context) {
	result, err := h.insights.Cached(c.Request.Context())
	if err != nil {
		RespondError(c, err, "insight_cached_failed")
		return
	}
	RespondOK(c, result)
}

func (h *InsightHandler) Reassess(c *gin.Context) {
	if err := h.insights.Reassess(c.Request.Context()); err != nil {
		RespondError(c, err, "insight_reassess_failed")
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (h *InsightHandler) Feedback(c *gin.Context) {
	var req struct {
		Helpful *bool `json:"helpful"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Helpful == nil {
		RespondError(c, apierr.BadRequest("helpful_required", err), "helpful_required")
		return
	}
	if err := h.insights.Feedback(c.Request.Context(), c.Param("id"), *req.Helpful); err != nil {
		RespondError(c, err, "insight_feedback_failed")
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (h *InsightHandler) Dismiss(c *gin.Context) {
	if err := h.insights.Dismiss(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, err, "insight_dismiss_failed")
		return
	}
	RespondOK(c, gin.H{"success": true})
}
