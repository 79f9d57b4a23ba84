package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/ideaforge/ideaforge-backend/internal/config"
	"github.com/ideaforge/ideaforge-backend/internal/data/db"
	ideaRepos "github.com/ideaforge/ideaforge-backend/internal/data/repos"
	httpSrv "github.com/ideaforge/ideaforge-backend/internal/http"
	httpH "github.com/ideaforge/ideaforge-backend/internal/http/handlers"
	httpMW "github.com/ideaforge/ideaforge-backend/internal/http/middleware"
	"github.com/ideaforge/ideaforge-backend/internal/observability"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/logger"
	"github.com/ideaforge/ideaforge-backend/internal/realtime"
	"github.com/ideaforge/ideaforge-backend/internal/realtime/bus"
	"github.com/ideaforge/ideaforge-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	cfg, err := config.Load(log)
	if err != nil {
		log.Error("Config load failed", "error", err)
		os.Exit(1)
	}

	// Tracing
	ctx := context.Background()
	if shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.Otel.ServiceName,
		Environment: cfg.Otel.Environment,
		Version:     cfg.Otel.Version,
	}); shutdown != nil {
		defer func() { _ = shutdown(ctx) }()
	}

	// Postgres
	dbService, err := db.New(log)
	if err != nil {
		log.Error("Database init failed", "error", err)
		os.Exit(1)
	}
	if err = dbService.AutoMigrateAll(); err != nil {
		log.Warn("Auto migration failed", "error", err)
	}
	gormDB := dbService.DB()

	// Realtime
	log.Info("Setting up realtime bus and bridge...")
	eventBus, err := bus.NewRedisBus(log)
	if err != nil {
		log.Warn("Redis bus init failed, cached views will not invalidate", "error", err)
	}
	viewCache := realtime.NewViewCache()
	var bridge *realtime.Bridge
	if eventBus != nil {
		bridge = realtime.NewBridge(log, eventBus, viewCache)
	}

	// Repos
	log.Info("Setting up repos...")
	ideaRepo := ideaRepos.NewIdeaRepo(gormDB, log)
	protoRepo := ideaRepos.NewPrototypeRepo(gormDB, log)
	stateRepo := ideaRepos.NewSessionStateRepo(gormDB, log)

	// Services
	log.Info("Setting up services...")
	aiClient, err := services.NewAIClient(log)
	if err != nil {
		log.Error("Could not init AIClient", "error", err)
		os.Exit(1)
	}
	previewPublisher, err := services.NewPreviewPublisher(log)
	if err != nil {
		log.Warn("Could not init PreviewPublisher, previews fall back to handle URLs", "error", err)
		previewPublisher = nil
	}
	triageService := services.NewIdeaTriageService(gormDB, log, ideaRepo, eventBus)
	pipelineService := services.NewPipelineService(gormDB, log, ideaRepo, viewCache)
	metricsService := services.NewMetricsService(gormDB, log, ideaRepo, viewCache)
	versionService := services.NewVersionService(gormDB, log, protoRepo, eventBus)
	generationService := services.NewGenerationService(
		gormDB,
		log,
		ideaRepo,
		protoRepo,
		versionService,
		aiClient,
		previewPublisher,
		triageService,
	)
	stateService := services.NewPrototypeStateService(gormDB, log, stateRepo, protoRepo)

	// Handlers
	log.Info("Setting up handlers...")
	ideaHandler := httpH.NewIdeaHandler(triageService)
	triageHandler := httpH.NewTriageHandler(triageService)
	pipelineHandler := httpH.NewPipelineHandler(pipelineService, metricsService)
	prototypeHandler := httpH.NewPrototypeHandler(generationService, versionService)
	stateHandler := httpH.NewSessionStateHandler(stateService)
	healthHandler := httpH.NewHealthHandler()
	var realtimeHandler *httpH.RealtimeHandler
	if bridge != nil {
		realtimeHandler = httpH.NewRealtimeHandler(bridge)
	}

	// Middleware
	authMiddleware := httpMW.NewAuthMiddleware(log, cfg.Auth.JWTSecretKey)

	// Router
	log.Info("Setting up router...")
	server := httpSrv.NewServer(httpSrv.RouterConfig{
		Log:                 log,
		AuthMiddleware:      authMiddleware,
		IdeaHandler:         ideaHandler,
		TriageHandler:       triageHandler,
		PipelineHandler:     pipelineHandler,
		PrototypeHandler:    prototypeHandler,
		SessionStateHandler: stateHandler,
		RealtimeHandler:     realtimeHandler,
		HealthHandler:       healthHandler,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	if bridge != nil {
		g.Go(func() error {
			if err := bridge.Start(gCtx); err != nil {
				log.Warn("Realtime bridge failed to subscribe", "error", err)
			}
			<-gCtx.Done()
			return eventBus.Close()
		})
	}

	g.Go(func() error {
		log.Info("Starting HTTP server", "address", cfg.Server.Address)
		return server.Run(cfg.Server.Address)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
