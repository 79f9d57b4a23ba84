package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ideaforge/ideaforge-backend/internal/http/response"
	"github.com/ideaforge/ideaforge-backend/internal/realtime"
)

type RealtimeHandler struct {
	bridge *realtime.Bridge
}

func NewRealtimeHandler(bridge *realtime.Bridge) *RealtimeHandler {
	return &RealtimeHandler{bridge: bridge}
}

// GET /api/realtime/state
func (h *RealtimeHandler) State(c *gin.Context) {
	response.RespondOK(c, gin.H{"state": h.bridge.State()})
}
