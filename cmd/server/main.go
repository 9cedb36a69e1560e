package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"enginebench/server"

	"github.com/gin-gonic/gin"
)

func Run() error {
	server.AppLogger = server.NewLogger()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	hub := server.NewHub()
	go hub.Run()

	jobs := server.NewJobManager(hub)

	// Drop finished jobs after a day so long-lived servers do not grow
	// without bound.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			jobs.CleanupOldJobs(24 * time.Hour)
		}
	}()

	router := gin.New()
	server.SetupRoutes(router, jobs, hub)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%s", port),
		Handler:        router,
		ReadTimeout:    5 * time.Minute,
		WriteTimeout:   0, // disabled for SSE connections
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		server.AppLogger.Info("Server starting on port %s", port)
		server.AppLogger.Info("API endpoints available at http://localhost:%s/api", port)
		server.AppLogger.Info("WebSocket endpoint available at ws://localhost:%s/ws", port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.AppLogger.Fatal("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	server.AppLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		server.AppLogger.Error("Server forced to shutdown: %v", err)
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	server.AppLogger.Info("Server exited gracefully")
	return nil
}
