package router

import (
	"github.com/CompraLens/compralens-backend/config"
	"github.com/CompraLens/compralens-backend/handlers"
	"github.com/CompraLens/compralens-backend/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies struct holds all dependencies required for setting up routes.
type Dependencies struct {
	Config          *config.Config
	DocumentHandler *handlers.DocumentHandler
	ChatHandler     *handlers.ChatHandler
	HealthHandler   *handlers.HealthHandler
	Logger          *zap.SugaredLogger
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.Default()

	// Global Middleware
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))

	// Health and Metrics Routes
	r.GET("/health", deps.HealthHandler.DetailedHealth)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler())) // Prometheus metrics endpoint

	// Versioned API Group (v1)
	v1 := r.Group("/v1")
	{
		// Document Routes
		documentRoutes := v1.Group("/documents")
		{
			documentRoutes.POST("/process", deps.DocumentHandler.ProcessDocumentsHandler)
		}

		// Run Routes
		runRoutes := v1.Group("/runs")
		{
			runRoutes.GET("/:id", deps.DocumentHandler.GetRunHandler)
			runRoutes.GET("/:id/analysis", deps.DocumentHandler.GetRunAnalysisHandler)
			runRoutes.GET("/:id/suggestions", deps.ChatHandler.SuggestionsHandler)
			runRoutes.DELETE("/:id", deps.DocumentHandler.DeleteRunHandler)
		}

		// Chat Route
		v1.POST("/chat", deps.ChatHandler.AskHandler)
	}

	return r
}
