package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ideaforge/ideaforge-backend/internal/http/response"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/dbctx"
	"github.com/ideaforge/ideaforge-backend/internal/platform/apierr"
	"github.com/ideaforge/ideaforge-backend/internal/services"
)

type SessionStateHandler struct {
	state services.PrototypeStateService
}

func NewSessionStateHandler(state services.PrototypeStateService) *SessionStateHandler {
	return &SessionStateHandler{state: state}
}

// GET /api/prototypes/:id/state
func (h *SessionStateHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.KindValidation, err)
		return
	}
	payload, aerr := h.state.Load(dbctx.New(c.Request.Context()), id)
	if aerr != nil {
		response.RespondAppError(c, aerr)
		return
	}
	if payload == nil {
		response.RespondOK(c, gin.H{"state": nil})
		return
	}
	response.RespondOK(c, gin.H{"state": json.RawMessage(payload)})
}

// PUT /api/prototypes/:id/state
func (h *SessionStateHandler) Put(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.KindValidation, err)
		return
	}
	var payload json.RawMessage
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.KindValidation, err)
		return
	}
	if aerr := h.state.Save(dbctx.New(c.Request.Context()), id, payload); aerr != nil {
		response.RespondAppError(c, aerr)
		return
	}
	response.RespondOK(c, gin.H{"saved": true})
}

// DELETE /api/prototypes/:id/state
func (h *SessionStateHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.KindValidation, err)
		return
	}
	if aerr := h.state.Clear(dbctx.New(c.Request.Context()), id); aerr != nil {
		response.RespondAppError(c, aerr)
		return
	}
	response.RespondOK(c, gin.H{"cleared": true})
}
