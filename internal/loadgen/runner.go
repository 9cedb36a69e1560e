package loadgen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Doer issues a single chat-completion request. Implementations must
// return a *RequestError (or a context error) on failure so the runner
// can classify the sample.
type Doer interface {
	Do(ctx context.Context, spec RequestSpec, index int) (RequestResult, error)
}

// LevelOptions configures one concurrency run.
type LevelOptions struct {
	// Concurrency is the number of requests kept in flight simultaneously.
	Concurrency int
	// TotalRequests is the number of requests issued at this level.
	TotalRequests int
	// WarmupCount is the number of completed samples, in completion order,
	// excluded from latency and TTFT statistics. They are still issued and
	// still count toward the success and failure totals.
	WarmupCount int
	// RequestTimeout is the maximum wait for a single request. Zero means
	// no per-request timeout.
	RequestTimeout time.Duration
	// LevelTimeout is a wall-clock ceiling for the whole level. When it
	// expires, still-pending requests are recorded as canceled samples.
	// Zero means no ceiling.
	LevelTimeout time.Duration
	// OnSample, when set, is called once per completed sample.
	OnSample func(Sample)
}

// Validate rejects configurations before any request is issued.
func (o LevelOptions) Validate() error {
	if o.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", o.Concurrency)
	}
	if o.TotalRequests < o.Concurrency {
		return fmt.Errorf("total requests (%d) must be >= concurrency (%d)", o.TotalRequests, o.Concurrency)
	}
	if o.WarmupCount < 0 {
		return fmt.Errorf("warmup count must be >= 0, got %d", o.WarmupCount)
	}
	if o.WarmupCount >= o.TotalRequests {
		return fmt.Errorf("warmup count (%d) must be < total requests (%d)", o.WarmupCount, o.TotalRequests)
	}
	return nil
}

// EngineOptions configures a full benchmark of one engine endpoint.
type EngineOptions struct {
	Levels           []int
	RequestsPerLevel int
	WarmupCount      int
	RequestTimeout   time.Duration
	LevelTimeout     time.Duration
	// OnRun, when set, is called after each concurrency run completes.
	OnRun func(ConcurrencyRun)
	// OnSample, when set, is passed through to every level.
	OnSample func(Sample)
}

// Validate rejects configurations before any request is issued.
func (o EngineOptions) Validate() error {
	if len(o.Levels) == 0 {
		return errors.New("at least one concurrency level is required")
	}
	for _, level := range o.Levels {
		opts := LevelOptions{
			Concurrency:   level,
			TotalRequests: o.RequestsPerLevel,
			WarmupCount:   o.WarmupCount,
		}
		if err := opts.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Runner drives concurrent requests against one engine and aggregates the
// resulting samples.
type Runner struct {
	client Doer
}

// NewRunner creates a runner that issues requests through client.
func NewRunner(client Doer) *Runner {
	return &Runner{client: client}
}

// RunLevel issues opts.TotalRequests requests with at most opts.Concurrency
// in flight at once. A fixed pool of workers pulls request indices from a
// shared channel, so as soon as one request completes the next queued one
// is admitted and the pool stays saturated until the total is exhausted.
//
// Request failures never abort the level; each failure becomes a failed
// sample and every other in-flight or queued request proceeds.
func (r *Runner) RunLevel(ctx context.Context, spec RequestSpec, opts LevelOptions) (ConcurrencyRun, error) {
	if err := opts.Validate(); err != nil {
		return ConcurrencyRun{}, err
	}

	levelCtx := ctx
	if opts.LevelTimeout > 0 {
		var cancel context.CancelFunc
		levelCtx, cancel = context.WithTimeout(ctx, opts.LevelTimeout)
		defer cancel()
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		samples = make([]Sample, 0, opts.TotalRequests)
		jobs    = make(chan int)
	)

	start := time.Now()

	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				sample := r.issue(levelCtx, spec, index, opts.RequestTimeout)

				mu.Lock()
				// Warmup discard is by completion order, which reflects
				// actual service behavior under load.
				if len(samples) < opts.WarmupCount {
					sample.Warmup = true
				}
				samples = append(samples, sample)
				mu.Unlock()

				if opts.OnSample != nil {
					opts.OnSample(sample)
				}
			}
		}()
	}

	for i := 0; i < opts.TotalRequests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start)

	run := ConcurrencyRun{
		Concurrency: opts.Concurrency,
		Samples:     samples,
		Elapsed:     elapsed,
		Summary:     Reduce(samples, elapsed),
	}
	return run, nil
}

// issue sends one request and converts the outcome into a Sample.
func (r *Runner) issue(levelCtx context.Context, spec RequestSpec, index int, timeout time.Duration) Sample {
	if levelCtx.Err() != nil {
		return Sample{
			Index:       index,
			ErrorKind:   ErrCanceled,
			ErrorDetail: "level deadline exceeded before request was issued",
		}
	}

	reqCtx := levelCtx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(levelCtx, timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := r.client.Do(reqCtx, spec, index)
	duration := time.Since(start)

	if err != nil {
		kind, status := classify(err)
		// A context error observed after the level ceiling expired means
		// the level aborted this request, not that the request itself
		// exceeded its own budget.
		if (kind == ErrTimeout || kind == ErrCanceled) && levelCtx.Err() != nil {
			kind = ErrCanceled
			status = 0
		}
		return Sample{
			Index:       index,
			Duration:    duration,
			ErrorKind:   kind,
			StatusCode:  status,
			ErrorDetail: err.Error(),
		}
	}

	return Sample{
		Index:            index,
		Duration:         duration,
		TTFT:             result.TTFT,
		HasTTFT:          result.HasTTFT,
		CompletionTokens: result.CompletionTokens,
		Success:          true,
	}
}

func classify(err error) (ErrorKind, int) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind, reqErr.Status
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout, 0
	case errors.Is(err, context.Canceled):
		return ErrCanceled, 0
	}
	return ErrConnection, 0
}

// BenchmarkEndpoint runs every concurrency level in opts.Levels against the
// engine, strictly one level at a time so that levels never contend with
// each other. A level that completes with failed samples still contributes
// its partial statistics; levels are never retried.
func (r *Runner) BenchmarkEndpoint(ctx context.Context, engine, endpoint string, spec RequestSpec, opts EngineOptions) (EngineResult, error) {
	if err := opts.Validate(); err != nil {
		return EngineResult{}, err
	}

	result := EngineResult{
		Engine:   engine,
		Endpoint: endpoint,
	}

	for _, level := range opts.Levels {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		run, err := r.RunLevel(ctx, spec, LevelOptions{
			Concurrency:    level,
			TotalRequests:  opts.RequestsPerLevel,
			WarmupCount:    opts.WarmupCount,
			RequestTimeout: opts.RequestTimeout,
			LevelTimeout:   opts.LevelTimeout,
			OnSample:       opts.OnSample,
		})
		if err != nil {
			return result, fmt.Errorf("concurrency %d: %w", level, err)
		}

		result.Runs = append(result.Runs, run)
		if opts.OnRun != nil {
			opts.OnRun(run)
		}

		// A level that ran to completion under an expired parent context
		// produced only canceled samples; stop instead of burning through
		// the remaining levels.
		if err := ctx.Err(); err != nil {
			return result, err
		}
	}

	return result, nil
}
