package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ideaforge/ideaforge-backend/internal/http/response"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/dbctx"
	"github.com/ideaforge/ideaforge-backend/internal/platform/apierr"
	"github.com/ideaforge/ideaforge-backend/internal/services"
)

// TriageHandler exposes the admin review actions and the forward
// workflow transitions.
type TriageHandler struct {
	triage services.IdeaTriageService
}

func NewTriageHandler(triage services.IdeaTriageService) *TriageHandler {
	return &TriageHandler{triage: triage}
}

type rejectRequest struct {
	Feedback string `json:"feedback"`
}

// POST /api/admin/ideas/:id/approve
func (h *TriageHandler) Approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.KindValidation, err)
		return
	}
	idea, aerr := h.triage.Approve(dbctx.New(c.Request.Context()), id)
	if aerr != nil {
		response.RespondAppError(c, aerr)
		return
	}
	response.RespondOK(c, gin.H{"idea": idea})
}

// POST /api/admin/ideas/:id/reject
func (h *TriageHandler) Reject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.KindValidation, err)
		return
	}
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.KindValidation, err)
		return
	}
	idea, aerr := h.triage.Reject(dbctx.New(c.Request.Context()), id, req.Feedback)
	if aerr != nil {
		response.RespondAppError(c, aerr)
		return
	}
	response.RespondOK(c, gin.H{"idea": idea})
}

// POST /api/ideas/:id/prd-development
func (h *TriageHandler) MarkPRDDevelopment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.KindValidation, err)
		return
	}
	idea, aerr := h.triage.MarkPRDDevelopment(dbctx.New(c.Request.Context()), id)
	if aerr != nil {
		response.RespondAppError(c, aerr)
		return
	}
	response.RespondOK(c, gin.H{"idea": idea})
}
