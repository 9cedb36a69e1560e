package loadgen

import (
	"fmt"
	"time"
)

// ErrorKind classifies why a request failed.
type ErrorKind string

const (
	ErrConnection ErrorKind = "connection_error"
	ErrHTTP       ErrorKind = "http_error"
	ErrTimeout    ErrorKind = "timeout"
	ErrMalformed  ErrorKind = "malformed_response"
	ErrCanceled   ErrorKind = "canceled"
)

// RequestSpec describes the chat-completion request sent to an engine.
// It is immutable once constructed; the same spec must be reused for every
// engine under comparison so that both see an identical workload.
type RequestSpec struct {
	Model       string   `json:"model" yaml:"model"`
	Prompts     []string `json:"prompts" yaml:"prompts"`
	MaxTokens   int      `json:"max_tokens" yaml:"max-tokens"`
	Temperature float32  `json:"temperature" yaml:"temperature"`
	TopP        float32  `json:"top_p" yaml:"top-p"`
	Stream      bool     `json:"stream" yaml:"stream"`
}

// PromptFor returns the prompt for the request with the given index.
// Assignment is deterministic so repeated runs and both engines of a
// comparison see the same prompt sequence.
func (s RequestSpec) PromptFor(index int) string {
	if len(s.Prompts) == 0 {
		return ""
	}
	return s.Prompts[index%len(s.Prompts)]
}

// RequestResult carries what a single successful request observed.
type RequestResult struct {
	TTFT             time.Duration
	HasTTFT          bool
	CompletionTokens int
}

// RequestError is a request failure already classified into an ErrorKind.
// Status is set for http_error kinds.
type RequestError struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	if e.Kind == ErrHTTP {
		return fmt.Sprintf("%s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Sample is the outcome of one completed request. It is created once at
// request completion and never mutated afterwards.
type Sample struct {
	Index            int           `json:"index" yaml:"index"`
	Duration         time.Duration `json:"duration_ns" yaml:"duration-ns"`
	TTFT             time.Duration `json:"ttft_ns,omitempty" yaml:"ttft-ns,omitempty"`
	HasTTFT          bool          `json:"has_ttft" yaml:"has-ttft"`
	CompletionTokens int           `json:"completion_tokens" yaml:"completion-tokens"`
	Success          bool          `json:"success" yaml:"success"`
	ErrorKind        ErrorKind     `json:"error_kind,omitempty" yaml:"error-kind,omitempty"`
	ErrorDetail      string        `json:"error_detail,omitempty" yaml:"error-detail,omitempty"`
	StatusCode       int           `json:"status_code,omitempty" yaml:"status-code,omitempty"`
	Warmup           bool          `json:"warmup" yaml:"warmup"`
}

// ConcurrencyRun pairs one concurrency level with the samples produced at
// that level. Samples are stored in completion order; the first WarmupCount
// completed samples are flagged as warmup and excluded from the summary's
// latency and TTFT statistics (they still count toward the success and
// failure totals).
type ConcurrencyRun struct {
	Concurrency int           `json:"concurrency" yaml:"concurrency"`
	Samples     []Sample      `json:"samples" yaml:"samples"`
	Elapsed     time.Duration `json:"elapsed_ns" yaml:"elapsed-ns"`
	Summary     Summary       `json:"summary" yaml:"summary"`
}

// EngineResult is the ordered sequence of runs for one engine endpoint,
// in the order the concurrency levels were executed.
type EngineResult struct {
	Engine   string           `json:"engine" yaml:"engine"`
	Endpoint string           `json:"endpoint" yaml:"endpoint"`
	Runs     []ConcurrencyRun `json:"runs" yaml:"runs"`
}
