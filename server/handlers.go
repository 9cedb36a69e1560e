package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers holds the HTTP handlers for the benchmark API.
type Handlers struct {
	jobs *JobManager
}

// NewHandlers creates the API handlers.
func NewHandlers(jobs *JobManager) *Handlers {
	return &Handlers{jobs: jobs}
}

// Health reports server liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StartBenchmark creates and starts a new comparison job.
func (h *Handlers) StartBenchmark(c *gin.Context) {
	var request BenchmarkRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	jobID, err := h.jobs.StartJob(request)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid benchmark configuration",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"jobId":  jobID,
		"status": JobStatusQueued,
	})
}

// GetJob returns the current state of a job, including results once the
// job has completed.
func (h *Handlers) GetJob(c *gin.Context) {
	jobID := c.Param("jobId")

	snapshot, exists := h.jobs.Snapshot(jobID)
	if !exists {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Not Found",
			Message: "job " + jobID + " does not exist",
			Code:    http.StatusNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// ListJobs returns every known job.
func (h *Handlers) ListJobs(c *gin.Context) {
	snapshots := h.jobs.ListJobs()
	c.JSON(http.StatusOK, gin.H{
		"jobs":  snapshots,
		"count": len(snapshots),
	})
}

// CancelJob requests cancellation of a running job.
func (h *Handlers) CancelJob(c *gin.Context) {
	jobID := c.Param("jobId")

	if !h.jobs.CancelJob(jobID) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Not Found",
			Message: "job " + jobID + " not found or not cancellable",
			Code:    http.StatusNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobId":  jobID,
		"status": JobStatusCancelled,
	})
}
