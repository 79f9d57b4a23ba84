package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ideaforge/ideaforge-backend/internal/http/response"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/dbctx"
	"github.com/ideaforge/ideaforge-backend/internal/services"
)

type PipelineHandler struct {
	pipeline services.PipelineService
	metrics  services.MetricsService
}

func NewPipelineHandler(pipeline services.PipelineService, metrics services.MetricsService) *PipelineHandler {
	return &PipelineHandler{pipeline: pipeline, metrics: metrics}
}

// GET /api/pipeline
func (h *PipelineHandler) Pipeline(c *gin.Context) {
	view, aerr := h.pipeline.Pipeline(dbctx.New(c.Request.Context()))
	if aerr != nil {
		response.RespondAppError(c, aerr)
		return
	}
	response.RespondOK(c, gin.H{"pipeline": view})
}

// GET /api/metrics/overview
func (h *PipelineHandler) MetricsOverview(c *gin.Context) {
	overview, aerr := h.metrics.Overview(dbctx.New(c.Request.Context()))
	if aerr != nil {
		response.RespondAppError(c, aerr)
		return
	}
	response.RespondOK(c, gin.H{"overview": overview})
}
