package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes for the server.
func SetupRoutes(router *gin.Engine, jobs *JobManager, hub *Hub) {
	handlers := NewHandlers(jobs)
	sseHandler := NewSSEHandler(jobs)

	router.Use(RecoveryMiddleware())
	router.Use(CORSMiddleware())
	router.Use(LoggingMiddleware())

	api := router.Group("/api")
	{
		api.GET("/health", handlers.Health)

		api.POST("/benchmark", handlers.StartBenchmark)
		api.GET("/jobs", handlers.ListJobs)
		api.GET("/jobs/:jobId", handlers.GetJob)
		api.POST("/jobs/:jobId/cancel", handlers.CancelJob)
		api.GET("/jobs/:jobId/stream", sseHandler.StreamJobProgress)
	}

	router.GET("/ws", hub.ServeWS)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "LLM Inference Engine Benchmark API",
			"status":  "ok",
			"endpoints": gin.H{
				"health":    "/api/health",
				"benchmark": "/api/benchmark",
				"jobs":      "/api/jobs",
				"stream":    "/api/jobs/:jobId/stream",
				"websocket": "/ws",
			},
		})
	})

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Not Found",
			Message: "The requested endpoint does not exist",
			Code:    http.StatusNotFound,
		})
	})
}
