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

type PrototypeHandler struct {
	generation services.GenerationService
	versions   services.VersionService
}

func NewPrototypeHandler(generation services.GenerationService, versions services.VersionService) *PrototypeHandler {
	return &PrototypeHandler{generation: generation, versions: versions}
}

type generateRequest struct {
	IdeaID uuid.UUID `json:"idea_id"`
	PRDID  uuid.UUID `json:"prd_id"`
	Prompt string    `json:"prompt"`
}

type refineRequest struct {
	Prompt string `json:"prompt"`
}

// POST /api/prototypes/generate
//
// The response arrives only once generation reaches a terminal state;
// clients that disconnect leave the row generating.
func (h *PrototypeHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.KindValidation, err)
		return
	}
	proto, aerr := h.generation.Generate(c.Request.Context(), req.IdeaID, req.PRDID, req.Prompt)
	if aerr != nil {
		response.RespondAppError(c, aerr)
		return
	}
	response.RespondCreated(c, gin.H{"prototype": proto})
}

// POST /api/prototypes/:id/refine
func (h *PrototypeHandler) Refine(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.KindValidation, err)
		return
	}
	var req refineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.KindValidation, err)
		return
	}
	proto, aerr := h.generation.Refine(c.Request.Context(), id, req.Prompt)
	if aerr != nil {
		response.RespondAppError(c, aerr)
		return
	}
	response.RespondCreated(c, gin.H{"prototype": proto})
}

// POST /api/prototypes/:id/restore
func (h *PrototypeHandler) Restore(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.KindValidation, err)
		return
	}
	proto, aerr := h.versions.Restore(dbctx.New(c.Request.Context()), id)
	if aerr != nil {
		response.RespondAppError(c, aerr)
		return
	}
	response.RespondCreated(c, gin.H{"prototype": proto})
}

// GET /api/prds/:id/prototypes
func (h *PrototypeHandler) VersionHistory(c *gin.Context) {
	prdID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.KindValidation, err)
		return
	}
	versions, aerr := h.versions.VersionHistory(dbctx.New(c.Request.Context()), prdID)
	if aerr != nil {
		response.RespondAppError(c, aerr)
		return
	}
	response.RespondOK(c, gin.H{"versions": versions})
}

// GET /api/prds/:id/prototypes/latest
//
// An empty lineage responds 200 with a null prototype, not 404.
func (h *PrototypeHandler) Latest(c *gin.Context) {
	prdID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.KindValidation, err)
		return
	}
	proto, aerr := h.versions.Latest(dbctx.New(c.Request.Context()), prdID)
	if aerr != nil {
		response.RespondAppError(c, aerr)
		return
	}
	response.RespondOK(c, gin.H{"prototype": proto})
}

// GET /api/prototypes/:id
func (h *PrototypeHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.KindValidation, err)
		return
	}
	proto, aerr := h.versions.Get(dbctx.New(c.Request.Context()), id)
	if aerr != nil {
		response.RespondAppError(c, aerr)
		return
	}
	response.RespondOK(c, gin.H{"prototype": proto})
}
