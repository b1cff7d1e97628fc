package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/fathom-backend/internal/platform/apierr"
	"github.com/yungbote/fathom-backend/internal/services"
)

type EntryHandler struct {
	entries services.EntryService
}

func NewEntryHandler(entries services.EntryService) *EntryHandler {
	return &EntryHandler{entries: entries}
}

func (h *EntryHandler) Create(c *gin.Context) {
	var req services.EntryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.BadRequest("invalid_body", err), "invalid_body")
		return
	}
	entry, err := h.entries.Create(c.Request.Context(), req)
	if err != nil {
		RespondError(c, err, "entry_create_failed")
		return
	}
	RespondOK(c, gin.H{"entry": entry})
}

func (h *EntryHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.entries.List(c.Request.Context(), limit)
	if err != nil {
		RespondError(c, err, "entry_list_failed")
		return
	}
	RespondOK(c, gin.H{"entries": entries})
}

func (h *EntryHandler) Revise(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apierr.BadRequest("invalid_entry_id", err), "invalid_entry_id")
		return
	}
	var patch services.EntryPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		RespondError(c, apierr.BadRequest("invalid_body", err), "invalid_body")
		return
	}
	entry, err := h.entries.Revise(c.Request.Context(), entryID, patch)
	if err != nil {
		RespondError(c, err, "entry_revise_failed")
		return
	}
	RespondOK(c, gin.H{"entry": entry})
}
