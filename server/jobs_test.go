package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	AppLogger = NewLogger()
	os.Exit(m.Run())
}

func newTestManager() *JobManager {
	hub := NewHub()
	go hub.Run()
	return NewJobManager(hub)
}

// fakeEngine serves OpenAI-style chat completions with a configurable delay.
func fakeEngine(delay time.Duration) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(delay):
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "cmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "test-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 2, "completion_tokens": 4, "total_tokens": 6}
		}`)
	}))
}

func testRequest(baseURL string) BenchmarkRequest {
	return BenchmarkRequest{
		EngineA:           EngineTarget{Name: "engine-a", BaseURL: baseURL + "/v1"},
		Model:             "test-model",
		Prompts:           []string{"hello"},
		ConcurrencyLevels: []int{1, 2},
		RequestsPerLevel:  2,
		MaxTokens:         16,
	}
}

func waitForStatus(t *testing.T, jm *JobManager, jobID string, want string) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		snapshot, exists := jm.Snapshot(jobID)
		if !exists {
			t.Fatalf("Job %s disappeared", jobID)
		}
		if snapshot.Status == want {
			return snapshot
		}
		if snapshot.Status == JobStatusFailed && want != JobStatusFailed {
			t.Fatalf("Job failed unexpectedly: %s", snapshot.Error)
		}
		time.Sleep(10 * time.Millisecond)
	}
	snapshot, _ := jm.Snapshot(jobID)
	t.Fatalf("Job %s never reached %s, stuck at %s", jobID, want, snapshot.Status)
	return JobSnapshot{}
}

func TestStartJobRejectsInvalidRequest(t *testing.T) {
	jm := newTestManager()

	request := testRequest("http://localhost:8000")
	request.WarmupRequests = request.RequestsPerLevel

	if _, err := jm.StartJob(request); err == nil {
		t.Fatal("Expected validation error for warmup >= requests per level")
	}
	if len(jm.ListJobs()) != 0 {
		t.Error("Rejected request must not create a job")
	}
}

func TestJobRunsToCompletion(t *testing.T) {
	engine := fakeEngine(0)
	defer engine.Close()

	jm := newTestManager()
	jobID, err := jm.StartJob(testRequest(engine.URL))
	if err != nil {
		t.Fatalf("StartJob failed: %v", err)
	}

	snapshot := waitForStatus(t, jm, jobID, JobStatusCompleted)

	if snapshot.Result == nil || snapshot.Result.EngineA == nil {
		t.Fatal("Completed job must carry a result for engine A")
	}
	if snapshot.Result.EngineB != nil {
		t.Error("Single-engine job must not report engine B")
	}

	runs := snapshot.Result.EngineA.Runs
	if len(runs) != 2 {
		t.Fatalf("Expected 2 concurrency runs, got %d", len(runs))
	}
	for i, want := range []int{1, 2} {
		if runs[i].Concurrency != want {
			t.Errorf("Run %d: expected concurrency %d, got %d", i, want, runs[i].Concurrency)
		}
		if runs[i].Summary.SuccessCount != 2 {
			t.Errorf("Run %d: expected 2 successes, got %d", i, runs[i].Summary.SuccessCount)
		}
	}

	if snapshot.StartedAt == nil || snapshot.CompletedAt == nil {
		t.Error("Completed job must record start and completion times")
	}
	if snapshot.Progress.Progress != 100 {
		t.Errorf("Expected progress 100, got %v", snapshot.Progress.Progress)
	}
}

func TestJobComparesTwoEngines(t *testing.T) {
	engineA := fakeEngine(0)
	defer engineA.Close()
	engineB := fakeEngine(0)
	defer engineB.Close()

	jm := newTestManager()
	request := testRequest(engineA.URL)
	request.EngineB = &EngineTarget{Name: "engine-b", BaseURL: engineB.URL + "/v1"}

	jobID, err := jm.StartJob(request)
	if err != nil {
		t.Fatalf("StartJob failed: %v", err)
	}

	snapshot := waitForStatus(t, jm, jobID, JobStatusCompleted)
	if snapshot.Result.EngineA == nil || snapshot.Result.EngineB == nil {
		t.Fatal("Comparison job must carry results for both engines")
	}
	if snapshot.Result.EngineA.Engine != "engine-a" || snapshot.Result.EngineB.Engine != "engine-b" {
		t.Errorf("Engine names mixed up: %q vs %q", snapshot.Result.EngineA.Engine, snapshot.Result.EngineB.Engine)
	}
}

func TestCancelRunningJob(t *testing.T) {
	engine := fakeEngine(300 * time.Millisecond)
	defer engine.Close()

	jm := newTestManager()
	request := testRequest(engine.URL)
	request.ConcurrencyLevels = []int{1}
	request.RequestsPerLevel = 20

	jobID, err := jm.StartJob(request)
	if err != nil {
		t.Fatalf("StartJob failed: %v", err)
	}

	waitForStatus(t, jm, jobID, JobStatusRunning)
	if !jm.CancelJob(jobID) {
		t.Fatal("Expected running job to be cancellable")
	}

	snapshot := waitForStatus(t, jm, jobID, JobStatusCancelled)
	if snapshot.Result != nil {
		t.Error("Cancelled job must not carry a result")
	}

	// A settled job cannot be cancelled again.
	if jm.CancelJob(jobID) {
		t.Error("Cancelling a settled job must report false")
	}
}

func TestCancelUnknownJob(t *testing.T) {
	jm := newTestManager()
	if jm.CancelJob("no-such-job") {
		t.Error("Cancelling an unknown job must report false")
	}
}

func TestListenersReceiveProgress(t *testing.T) {
	engine := fakeEngine(20 * time.Millisecond)
	defer engine.Close()

	jm := newTestManager()
	jobID, err := jm.StartJob(testRequest(engine.URL))
	if err != nil {
		t.Fatalf("StartJob failed: %v", err)
	}

	ch := make(chan *WebSocketMessage, 32)
	jm.RegisterListener(jobID, ch)
	defer jm.UnregisterListener(jobID, ch)

	waitForStatus(t, jm, jobID, JobStatusCompleted)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case message := <-ch:
			if message.Type == MessageTypeComplete {
				return
			}
		case <-deadline:
			t.Fatal("Listener never received a completion message")
		}
	}
}

func TestCleanupOldJobs(t *testing.T) {
	engine := fakeEngine(0)
	defer engine.Close()

	jm := newTestManager()
	jobID, err := jm.StartJob(testRequest(engine.URL))
	if err != nil {
		t.Fatalf("StartJob failed: %v", err)
	}
	waitForStatus(t, jm, jobID, JobStatusCompleted)

	// A fresh job survives cleanup with a generous max age.
	jm.CleanupOldJobs(time.Hour)
	if _, exists := jm.GetJob(jobID); !exists {
		t.Fatal("Recent job must survive cleanup")
	}

	// With a zero max age every settled job is stale.
	time.Sleep(5 * time.Millisecond)
	jm.CleanupOldJobs(0)
	if _, exists := jm.GetJob(jobID); exists {
		t.Error("Settled job must be removed once past the max age")
	}
}
