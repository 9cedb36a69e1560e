package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SSEHandler streams job progress over Server-Sent Events.
type SSEHandler struct {
	jobs *JobManager
}

// NewSSEHandler creates a new SSE handler.
func NewSSEHandler(jobs *JobManager) *SSEHandler {
	return &SSEHandler{jobs: jobs}
}

// StreamJobProgress streams progress updates for one job until the client
// disconnects.
func (h *SSEHandler) StreamJobProgress(c *gin.Context) {
	jobID := c.Param("jobId")

	snapshot, exists := h.jobs.Snapshot(jobID)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	// Send the current state first so late subscribers catch up.
	writeSSE(c, NewProgressMessage(jobID, snapshot.Progress))

	if snapshot.Status == JobStatusCompleted || snapshot.Status == JobStatusFailed || snapshot.Status == JobStatusCancelled {
		return
	}

	updates := make(chan *WebSocketMessage, 16)
	h.jobs.RegisterListener(jobID, updates)
	defer h.jobs.UnregisterListener(jobID, updates)

	ctx := c.Request.Context()
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			AppLogger.Info("SSE connection closed for job %s", jobID)
			return
		case <-keepalive.C:
			fmt.Fprintf(c.Writer, "data: {\"type\":%q,\"timestamp\":%q}\n\n", MessageTypePing, time.Now().Format(time.RFC3339))
			c.Writer.Flush()
		case message := <-updates:
			writeSSE(c, message)
			if message.Type == MessageTypeComplete || message.Type == MessageTypeError || message.Type == MessageTypeCancelled {
				return
			}
		}
	}
}

func writeSSE(c *gin.Context, message *WebSocketMessage) {
	data, err := message.ToJSON()
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", data)
	c.Writer.Flush()
}
