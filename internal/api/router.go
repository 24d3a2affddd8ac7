package api

import (
	"github.com/gin-gonic/gin"
	"github.com/krushna-ai/gdvg-ingest/internal/api/handler"
	"github.com/krushna-ai/gdvg-ingest/internal/api/middleware"
	"github.com/krushna-ai/gdvg-ingest/internal/logger"
	"github.com/krushna-ai/gdvg-ingest/internal/repository"
	"github.com/krushna-ai/gdvg-ingest/internal/service"
)

// RouterDeps carries the services the HTTP surface exposes.
type RouterDeps struct {
	Orchestrator *service.Orchestrator
	Detector     *service.Detector
	Stats        *service.StatsService
	Gaps         *repository.GapRepository
	Content      *repository.ContentRepository
	Log          *logger.Logger
}

// SetupRouter configures the Gin router with all routes.
func SetupRouter(deps RouterDeps, mode string, cors middleware.CORSConfig) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(middleware.CORS(cors))

	healthHandler := handler.NewHealthHandler()
	jobHandler := handler.NewJobHandler(deps.Orchestrator)
	gapHandler := handler.NewGapHandler(deps.Gaps, deps.Detector, deps.Orchestrator)
	contentHandler := handler.NewContentHandler(deps.Content)
	statsHandler := handler.NewStatsHandler(deps.Stats)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		// Import jobs
		v1.POST("/jobs", jobHandler.Create)
		v1.GET("/jobs", jobHandler.List)
		v1.GET("/jobs/:id", jobHandler.Get)
		v1.GET("/jobs/:id/progress", jobHandler.Progress)
		v1.POST("/jobs/:id/start", jobHandler.Start)
		v1.POST("/jobs/:id/pause", jobHandler.Pause)
		v1.POST("/jobs/:id/resume", jobHandler.Resume)
		v1.POST("/jobs/:id/cancel", jobHandler.Cancel)

		// Gap registry
		v1.GET("/gaps", gapHandler.List)
		v1.GET("/gaps/:id", gapHandler.Get)
		v1.POST("/gaps", gapHandler.Register)
		v1.PATCH("/gaps/:id/resolve", gapHandler.Resolve)
		v1.PATCH("/gaps/:id/attempt", gapHandler.Attempt)
		v1.POST("/gaps/detect", gapHandler.Detect)
		v1.POST("/gaps/fill", gapHandler.Fill)

		// Imported records
		v1.GET("/content", contentHandler.List)
		v1.GET("/content/:type/:source_id", contentHandler.Get)

		// Stats
		v1.GET("/stats", statsHandler.Stats)
	}

	return r
}
