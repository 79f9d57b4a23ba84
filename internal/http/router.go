package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/ideaforge/ideaforge-backend/internal/http/handlers"
	httpMW "github.com/ideaforge/ideaforge-backend/internal/http/middleware"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	AuthMiddleware *httpMW.AuthMiddleware

	IdeaHandler         *httpH.IdeaHandler
	TriageHandler       *httpH.TriageHandler
	PipelineHandler     *httpH.PipelineHandler
	PrototypeHandler    *httpH.PrototypeHandler
	SessionStateHandler *httpH.SessionStateHandler
	RealtimeHandler     *httpH.RealtimeHandler
	HealthHandler       *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware("ideaforge-backend"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS())
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Ideas
		if cfg.IdeaHandler != nil {
			protected.POST("/ideas", cfg.IdeaHandler.Submit)
			protected.GET("/ideas", cfg.IdeaHandler.ListMine)
			protected.GET("/ideas/:id", cfg.IdeaHandler.Get)
		}

		// Workflow transitions
		if cfg.TriageHandler != nil {
			protected.POST("/ideas/:id/prd-development", cfg.TriageHandler.MarkPRDDevelopment)
		}

		// Pipeline and metrics
		if cfg.PipelineHandler != nil {
			protected.GET("/pipeline", cfg.PipelineHandler.Pipeline)
			protected.GET("/metrics/overview", cfg.PipelineHandler.MetricsOverview)
		}

		// Prototypes
		if cfg.PrototypeHandler != nil {
			protected.POST("/prototypes/generate", cfg.PrototypeHandler.Generate)
			protected.POST("/prototypes/:id/refine", cfg.PrototypeHandler.Refine)
			protected.POST("/prototypes/:id/restore", cfg.PrototypeHandler.Restore)
			protected.GET("/prototypes/:id", cfg.PrototypeHandler.Get)
			protected.GET("/prds/:id/prototypes", cfg.PrototypeHandler.VersionHistory)
			protected.GET("/prds/:id/prototypes/latest", cfg.PrototypeHandler.Latest)
		}

		// Editing session state
		if cfg.SessionStateHandler != nil {
			protected.GET("/prototypes/:id/state", cfg.SessionStateHandler.Get)
			protected.PUT("/prototypes/:id/state", cfg.SessionStateHandler.Put)
			protected.DELETE("/prototypes/:id/state", cfg.SessionStateHandler.Delete)
		}

		// Realtime bridge state
		if cfg.RealtimeHandler != nil {
			protected.GET("/realtime/state", cfg.RealtimeHandler.State)
		}
	}

	admin := protected.Group("/admin")
	{
		if cfg.AuthMiddleware != nil {
			admin.Use(cfg.AuthMiddleware.RequireAdmin())
		}
		if cfg.TriageHandler != nil {
			admin.POST("/ideas/:id/approve", cfg.TriageHandler.Approve)
			admin.POST("/ideas/:id/reject", cfg.TriageHandler.Reject)
		}
	}

	return r
}
