package server

import (
	"fmt"
	"time"

	"enginebench/internal/loadgen"
)

// EngineTarget identifies one endpoint a job should benchmark.
type EngineTarget struct {
	Name    string `json:"name" binding:"required"`
	BaseURL string `json:"baseUrl" binding:"required"`
	APIKey  string `json:"apiKey,omitempty"`
}

// BenchmarkRequest is the payload for starting a comparison job. EngineB is
// optional; when present, both engines run with the identical request spec,
// one after the other.
type BenchmarkRequest struct {
	EngineA               EngineTarget  `json:"engineA" binding:"required"`
	EngineB               *EngineTarget `json:"engineB"`
	Model                 string        `json:"model" binding:"required"`
	Prompts               []string      `json:"prompts" binding:"required,min=1"`
	ConcurrencyLevels     []int         `json:"concurrencyLevels" binding:"required,min=1"`
	RequestsPerLevel      int           `json:"requestsPerLevel" binding:"required,min=1"`
	WarmupRequests        int           `json:"warmupRequests"`
	MaxTokens             int           `json:"maxTokens" binding:"required,min=1,max=4096"`
	Temperature           float32       `json:"temperature"`
	TopP                  float32       `json:"topP"`
	Stream                bool          `json:"stream"`
	RequestTimeoutSeconds int           `json:"requestTimeoutSeconds"`
	LevelTimeoutSeconds   int           `json:"levelTimeoutSeconds"`
}

// Validate rejects a request before the job issues any request.
func (r *BenchmarkRequest) Validate() error {
	spec := r.EngineOptions()
	if err := spec.Validate(); err != nil {
		return err
	}
	if r.RequestTimeoutSeconds < 0 || r.LevelTimeoutSeconds < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// Spec builds the request spec shared by both engines of the job.
func (r *BenchmarkRequest) Spec() loadgen.RequestSpec {
	return loadgen.RequestSpec{
		Model:       r.Model,
		Prompts:     r.Prompts,
		MaxTokens:   r.MaxTokens,
		Temperature: r.Temperature,
		TopP:        r.TopP,
		Stream:      r.Stream,
	}
}

// EngineOptions builds the per-engine run options for the job.
func (r *BenchmarkRequest) EngineOptions() loadgen.EngineOptions {
	return loadgen.EngineOptions{
		Levels:           r.ConcurrencyLevels,
		RequestsPerLevel: r.RequestsPerLevel,
		WarmupCount:      r.WarmupRequests,
		RequestTimeout:   time.Duration(r.RequestTimeoutSeconds) * time.Second,
		LevelTimeout:     time.Duration(r.LevelTimeoutSeconds) * time.Second,
	}
}

// ComparisonResponse is the final artifact of a job: one engine result per
// benchmarked endpoint.
type ComparisonResponse struct {
	EngineA *loadgen.EngineResult `json:"engineA"`
	EngineB *loadgen.EngineResult `json:"engineB,omitempty"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
