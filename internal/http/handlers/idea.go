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

type IdeaHandler struct {
	triage services.IdeaTriageService
}

func NewIdeaHandler(triage services.IdeaTriageService) *IdeaHandler {
	return &IdeaHandler{triage: triage}
}

// POST /api/ideas
func (h *IdeaHandler) Submit(c *gin.Context) {
	var req services.NewIdea
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.KindValidation, err)
		return
	}
	idea, aerr := h.triage.Submit(dbctx.New(c.Request.Context()), req)
	if aerr != nil {
		response.RespondAppError(c, aerr)
		return
	}
	response.RespondCreated(c, gin.H{"idea": idea})
}

// GET /api/ideas
func (h *IdeaHandler) ListMine(c *gin.Context) {
	ideas, aerr := h.triage.ListMine(dbctx.New(c.Request.Context()))
	if aerr != nil {
		response.RespondAppError(c, aerr)
		return
	}
	response.RespondOK(c, gin.H{"ideas": ideas})
}

// GET /api/ideas/:id
func (h *IdeaHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.KindValidation, err)
		return
	}
	idea, aerr := h.triage.Get(dbctx.New(c.Request.Context()), id)
	if aerr != nil {
		response.RespondAppError(c, aerr)
		return
	}
	response.RespondOK(c, gin.H{"idea": idea})
}
