package server

import (
	"fmt"
	"sync"
	"time"
)

// ProgressTracker tracks how far a job has advanced and publishes updates.
// One step is one completed concurrency run on one engine.
type ProgressTracker struct {
	jobID      string
	startTime  time.Time
	totalSteps int

	mu            sync.Mutex
	completed     int
	engine        string
	concurrency   int
	status        string
	lastBroadcast time.Time
	throttle      time.Duration

	publish func(*WebSocketMessage)
}

// NewProgressTracker creates a tracker that publishes through publish.
func NewProgressTracker(jobID string, totalSteps int, publish func(*WebSocketMessage)) *ProgressTracker {
	return &ProgressTracker{
		jobID:      jobID,
		startTime:  time.Now(),
		totalSteps: totalSteps,
		status:     JobStatusQueued,
		throttle:   time.Second,
		publish:    publish,
	}
}

// SetStatus updates the job status and publishes immediately.
func (pt *ProgressTracker) SetStatus(status string) {
	pt.mu.Lock()
	pt.status = status
	update := pt.snapshotLocked()
	pt.mu.Unlock()

	pt.publish(NewProgressMessage(pt.jobID, update))
}

// Advance records one completed step. Broadcasts are throttled to at most
// one per second.
func (pt *ProgressTracker) Advance(engine string, concurrency int) {
	pt.mu.Lock()
	pt.completed++
	pt.engine = engine
	pt.concurrency = concurrency

	now := time.Now()
	shouldBroadcast := now.Sub(pt.lastBroadcast) >= pt.throttle || pt.completed == pt.totalSteps
	if shouldBroadcast {
		pt.lastBroadcast = now
	}
	update := pt.snapshotLocked()
	pt.mu.Unlock()

	if shouldBroadcast {
		pt.publish(NewProgressMessage(pt.jobID, update))
	}
}

// Snapshot returns the current progress.
func (pt *ProgressTracker) Snapshot() ProgressUpdate {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.snapshotLocked()
}

func (pt *ProgressTracker) snapshotLocked() ProgressUpdate {
	progress := 0.0
	if pt.totalSteps > 0 {
		progress = float64(pt.completed) / float64(pt.totalSteps) * 100
	}

	step := "Waiting to start"
	if pt.engine != "" {
		step = fmt.Sprintf("Benchmarked %s at concurrency %d", pt.engine, pt.concurrency)
	}

	return ProgressUpdate{
		JobID:          pt.jobID,
		Status:         pt.status,
		Engine:         pt.engine,
		Concurrency:    pt.concurrency,
		Progress:       progress,
		ElapsedTime:    time.Since(pt.startTime).Seconds(),
		CurrentStep:    step,
		TotalSteps:     pt.totalSteps,
		CompletedSteps: pt.completed,
	}
}

// Complete publishes the final results.
func (pt *ProgressTracker) Complete(results interface{}) {
	pt.mu.Lock()
	pt.status = JobStatusCompleted
	pt.completed = pt.totalSteps
	pt.mu.Unlock()

	pt.publish(NewCompletionMessage(pt.jobID, CompletionMessage{
		JobID:     pt.jobID,
		Status:    JobStatusCompleted,
		Results:   results,
		Duration:  time.Since(pt.startTime).Seconds(),
		Completed: time.Now(),
	}))
}

// Fail publishes a job failure.
func (pt *ProgressTracker) Fail(message string) {
	pt.mu.Lock()
	pt.status = JobStatusFailed
	pt.mu.Unlock()

	pt.publish(NewErrorMessage(pt.jobID, ErrorMessage{
		JobID:   pt.jobID,
		Error:   "Benchmark failed",
		Message: message,
	}))
}

// Cancel publishes a job cancellation.
func (pt *ProgressTracker) Cancel(reason string) {
	pt.mu.Lock()
	pt.status = JobStatusCancelled
	pt.mu.Unlock()

	pt.publish(NewCancellationMessage(pt.jobID, CancellationMessage{
		JobID:     pt.jobID,
		Status:    JobStatusCancelled,
		Reason:    reason,
		Cancelled: time.Now(),
	}))
}
