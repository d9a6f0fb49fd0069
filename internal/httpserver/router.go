// Package httpserver assembles the gin engine: middleware, public probes and
// the authenticated /api routes.
package httpserver

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"knit-tracker-backend/internal/config"
	"knit-tracker-backend/internal/handlers"
	"knit-tracker-backend/internal/metrics"
	"knit-tracker-backend/internal/middleware"
)

type Handlers struct {
	Projects  *handlers.ProjectsHandler
	Patterns  *handlers.PatternsHandler
	Analytics *handlers.AnalyticsHandler
	Users     *handlers.UsersHandler
	Store     handlers.Pinger
}

func NewRouter(cfg *config.Config, h Handlers, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(metrics.GinMiddleware())

	// Probes and metrics (no auth)
	router.GET("/health", handlers.HealthHandler)
	router.GET("/readyz", handlers.ReadyHandler(h.Store, logger))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg))

	api.GET("/analytics/:userId", h.Analytics.GetAnalytics)
	api.GET("/users/:userId", h.Users.GetProfile)

	// Project routes
	api.GET("/projects", h.Projects.SearchProjects)
	api.GET("/projects/:userId", h.Projects.ListProjects)
	api.POST("/projects/:userId", h.Projects.CreateProject)
	api.GET("/projects/:userId/:projectId", h.Projects.GetProject)
	api.PUT("/projects/:userId/:projectId", h.Projects.UpdateProject)
	api.DELETE("/projects/:userId/:projectId", h.Projects.DeleteProject)

	// Row trackers
	api.POST("/projects/:userId/:projectId/trackers", h.Projects.AddTracker)
	api.PATCH("/projects/:userId/:projectId/trackers/:index", h.Projects.UpdateTracker)
	api.DELETE("/projects/:userId/:projectId/trackers/:index", h.Projects.RemoveTracker)

	// Pattern routes
	api.GET("/patterns/search", h.Patterns.SearchPatterns)
	api.GET("/patterns/:userId", h.Patterns.ListPatterns)
	api.POST("/patterns/:userId", h.Patterns.CreatePattern)
	api.GET("/patterns/:userId/:patternId", h.Patterns.GetPattern)
	api.DELETE("/patterns/:userId/:patternId", h.Patterns.DeletePattern)

	return router
}
