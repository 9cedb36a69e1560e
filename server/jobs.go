package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"enginebench/internal/api"
	"enginebench/internal/loadgen"

	"github.com/google/uuid"
)

// Job statuses.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

// Job is one asynchronous benchmark comparison.
type Job struct {
	ID          string
	Status      string
	Request     BenchmarkRequest
	Result      *ComparisonResponse
	Error       string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	cancel   context.CancelFunc
	progress *ProgressTracker
}

// JobSnapshot is the externally visible state of a job.
type JobSnapshot struct {
	ID          string              `json:"id"`
	Status      string              `json:"status"`
	Progress    ProgressUpdate      `json:"progress"`
	Result      *ComparisonResponse `json:"result,omitempty"`
	Error       string              `json:"error,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	StartedAt   *time.Time          `json:"startedAt,omitempty"`
	CompletedAt *time.Time          `json:"completedAt,omitempty"`
}

// JobManager owns all benchmark jobs and publishes their progress to the
// websocket hub and any registered SSE listeners.
type JobManager struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	listeners map[string][]chan *WebSocketMessage
	hub       *Hub

	// runMu serializes job execution: two comparisons running at once
	// would contend for host resources and skew each other's numbers.
	runMu sync.Mutex
}

// NewJobManager creates a new job manager.
func NewJobManager(hub *Hub) *JobManager {
	return &JobManager{
		jobs:      make(map[string]*Job),
		listeners: make(map[string][]chan *WebSocketMessage),
		hub:       hub,
	}
}

// StartJob validates the request, creates a job and begins executing it
// asynchronously. Validation failures are returned before any request is
// issued.
func (jm *JobManager) StartJob(request BenchmarkRequest) (string, error) {
	if err := request.Validate(); err != nil {
		return "", err
	}

	jobID := uuid.New().String()

	totalSteps := len(request.ConcurrencyLevels)
	if request.EngineB != nil {
		totalSteps *= 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:        jobID,
		Status:    JobStatusQueued,
		Request:   request,
		CreatedAt: time.Now(),
		cancel:    cancel,
	}
	job.progress = NewProgressTracker(jobID, totalSteps, func(message *WebSocketMessage) {
		jm.publish(jobID, message)
	})

	jm.mu.Lock()
	jm.jobs[jobID] = job
	jm.mu.Unlock()

	AppLogger.Info("Created benchmark job %s", jobID)
	go jm.execute(ctx, job)

	return jobID, nil
}

// GetJob retrieves a job by ID.
func (jm *JobManager) GetJob(jobID string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	job, exists := jm.jobs[jobID]
	return job, exists
}

// Snapshot returns the externally visible state of a job.
func (jm *JobManager) Snapshot(jobID string) (JobSnapshot, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[jobID]
	if !exists {
		return JobSnapshot{}, false
	}
	return snapshotLocked(job), true
}

// ListJobs returns a snapshot of every known job.
func (jm *JobManager) ListJobs() []JobSnapshot {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	snapshots := make([]JobSnapshot, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		snapshots = append(snapshots, snapshotLocked(job))
	}
	return snapshots
}

func snapshotLocked(job *Job) JobSnapshot {
	return JobSnapshot{
		ID:          job.ID,
		Status:      job.Status,
		Progress:    job.progress.Snapshot(),
		Result:      job.Result,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
}

// CancelJob requests cancellation of a queued or running job. In-flight
// requests are aborted and recorded as canceled samples; the job settles
// into the cancelled status once execution observes the aborted context.
func (jm *JobManager) CancelJob(jobID string) bool {
	jm.mu.RLock()
	job, exists := jm.jobs[jobID]
	jm.mu.RUnlock()

	if !exists {
		return false
	}
	if job.Status != JobStatusQueued && job.Status != JobStatusRunning {
		return false
	}

	AppLogger.Info("Cancelling benchmark job %s", jobID)
	job.cancel()
	return true
}

// RegisterListener subscribes a channel to a job's messages.
func (jm *JobManager) RegisterListener(jobID string, ch chan *WebSocketMessage) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	jm.listeners[jobID] = append(jm.listeners[jobID], ch)
}

// UnregisterListener removes a previously registered channel.
func (jm *JobManager) UnregisterListener(jobID string, ch chan *WebSocketMessage) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	channels := jm.listeners[jobID]
	for i, candidate := range channels {
		if candidate == ch {
			jm.listeners[jobID] = append(channels[:i], channels[i+1:]...)
			break
		}
	}
	if len(jm.listeners[jobID]) == 0 {
		delete(jm.listeners, jobID)
	}
}

// CleanupOldJobs removes completed jobs older than maxAge.
func (jm *JobManager) CleanupOldJobs(maxAge time.Duration) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for jobID, job := range jm.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(jm.jobs, jobID)
			AppLogger.Info("Cleaned up old job %s", jobID)
		}
	}
}

// publish fans a message out to the hub and the job's SSE listeners.
func (jm *JobManager) publish(jobID string, message *WebSocketMessage) {
	if data, err := message.ToJSON(); err == nil {
		jm.hub.BroadcastMessage(data)
	}

	jm.mu.RLock()
	channels := jm.listeners[jobID]
	jm.mu.RUnlock()

	for _, ch := range channels {
		select {
		case ch <- message:
		default:
			// Listener is not keeping up; skip rather than stall the job.
		}
	}
}

// execute runs the comparison: engine A, then engine B, strictly one after
// the other, and never more than one job at a time.
func (jm *JobManager) execute(ctx context.Context, job *Job) {
	defer func() {
		if r := recover(); r != nil {
			AppLogger.Error("Job %s panicked: %v", job.ID, r)
			jm.finish(job, JobStatusFailed, nil, fmt.Sprintf("internal error: %v", r))
		}
	}()

	jm.runMu.Lock()
	defer jm.runMu.Unlock()

	if ctx.Err() != nil {
		jm.finish(job, JobStatusCancelled, nil, "cancelled before execution")
		return
	}

	jm.mu.Lock()
	job.Status = JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	jm.mu.Unlock()
	job.progress.SetStatus(JobStatusRunning)

	spec := job.Request.Spec()
	response := &ComparisonResponse{}

	targets := []EngineTarget{job.Request.EngineA}
	if job.Request.EngineB != nil {
		targets = append(targets, *job.Request.EngineB)
	}

	for i, target := range targets {
		target := target

		options := job.Request.EngineOptions()
		options.OnRun = func(run loadgen.ConcurrencyRun) {
			job.progress.Advance(target.Name, run.Concurrency)
		}

		runner := loadgen.NewRunner(api.NewClient(target.BaseURL, target.APIKey))
		result, err := runner.BenchmarkEndpoint(ctx, target.Name, target.BaseURL, spec, options)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				jm.finish(job, JobStatusCancelled, nil, "cancelled by user")
			} else {
				jm.finish(job, JobStatusFailed, nil, err.Error())
			}
			return
		}

		if i == 0 {
			response.EngineA = &result
		} else {
			response.EngineB = &result
		}
	}

	jm.finish(job, JobStatusCompleted, response, "")
	AppLogger.Info("Job %s completed", job.ID)
}

func (jm *JobManager) finish(job *Job, status string, result *ComparisonResponse, errMsg string) {
	jm.mu.Lock()
	job.Status = status
	job.Result = result
	job.Error = errMsg
	now := time.Now()
	job.CompletedAt = &now
	jm.mu.Unlock()

	switch status {
	case JobStatusCompleted:
		job.progress.Complete(result)
	case JobStatusCancelled:
		job.progress.Cancel(errMsg)
	default:
		job.progress.Fail(errMsg)
		AppLogger.Error("Job %s failed: %s", job.ID, errMsg)
	}
}
