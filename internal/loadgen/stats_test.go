package loadgen

import (
	"math/rand"
	"testing"
	"time"
)

func TestPercentileInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}

	if got := percentile(sorted, 50); got != 3 {
		t.Errorf("Expected p50 of 3, got %v", got)
	}
	if got := percentile(sorted, 0); got != 1 {
		t.Errorf("Expected p0 of 1, got %v", got)
	}
	if got := percentile(sorted, 100); got != 5 {
		t.Errorf("Expected p100 of 5, got %v", got)
	}

	// p25 of [1..5] interpolates between ranks 1 and 2.
	if got := percentile(sorted, 25); got != 2 {
		t.Errorf("Expected p25 of 2, got %v", got)
	}

	single := []float64{7}
	for _, p := range []float64{50, 90, 99} {
		if got := percentile(single, p); got != 7 {
			t.Errorf("Single-element p%v: expected 7, got %v", p, got)
		}
	}
}

func TestPercentileMonotonic(t *testing.T) {
	stats := reduceValues([]float64{0.3, 0.1, 0.9, 0.2, 0.5, 0.8, 0.4})

	if stats.P50 > stats.P90 || stats.P90 > stats.P99 {
		t.Errorf("Percentiles must not decrease: p50=%v p90=%v p99=%v", stats.P50, stats.P90, stats.P99)
	}
	if stats.Min > stats.P50 || stats.P99 > stats.Max {
		t.Errorf("Percentiles must stay within [min, max]: %+v", stats)
	}
}

func sampleSet() []Sample {
	return []Sample{
		{Index: 0, Duration: 100 * time.Millisecond, Success: true, Warmup: true, CompletionTokens: 5},
		{Index: 1, Duration: 200 * time.Millisecond, Success: true, CompletionTokens: 10},
		{Index: 2, Duration: 300 * time.Millisecond, Success: true, CompletionTokens: 10, HasTTFT: true, TTFT: 50 * time.Millisecond},
		{Index: 3, Success: false, ErrorKind: ErrHTTP, StatusCode: 500},
		{Index: 4, Success: false, ErrorKind: ErrTimeout},
		{Index: 5, Duration: 400 * time.Millisecond, Success: true, CompletionTokens: 15},
	}
}

func TestReduceCounts(t *testing.T) {
	samples := sampleSet()
	summary := Reduce(samples, 2*time.Second)

	if summary.TotalRequests != 6 {
		t.Errorf("Expected 6 total requests, got %d", summary.TotalRequests)
	}
	if summary.SuccessCount != 4 {
		t.Errorf("Expected 4 successes (warmup included), got %d", summary.SuccessCount)
	}
	if summary.FailedCount != 2 {
		t.Errorf("Expected 2 failures, got %d", summary.FailedCount)
	}
	if summary.SuccessCount+summary.FailedCount != summary.TotalRequests {
		t.Error("Success + failed must equal total")
	}

	if summary.FailuresByKind[ErrHTTP] != 1 || summary.FailuresByKind[ErrTimeout] != 1 {
		t.Errorf("Unexpected failure breakdown: %v", summary.FailuresByKind)
	}

	// Warmup sample is excluded from statistics but not counts.
	if summary.StatSamples != 3 {
		t.Errorf("Expected 3 statistic samples, got %d", summary.StatSamples)
	}

	if summary.Throughput != 2.0 {
		t.Errorf("Expected throughput 4/2s = 2 req/s, got %v", summary.Throughput)
	}
	if summary.TotalCompletionTokens != 40 {
		t.Errorf("Expected 40 completion tokens, got %d", summary.TotalCompletionTokens)
	}
	if summary.TokenThroughput != 20.0 {
		t.Errorf("Expected 20 tokens/s, got %v", summary.TokenThroughput)
	}

	if summary.Latency.Min != 0.2 || summary.Latency.Max != 0.4 {
		t.Errorf("Expected latency range [0.2, 0.4], got [%v, %v]", summary.Latency.Min, summary.Latency.Max)
	}

	if !summary.HasTTFT {
		t.Error("Expected TTFT statistics, one sample carried a TTFT")
	}
	if summary.TTFT.Mean != 0.05 {
		t.Errorf("Expected mean TTFT of 0.05s, got %v", summary.TTFT.Mean)
	}
}

func TestReduceOrderIndependent(t *testing.T) {
	samples := sampleSet()
	want := Reduce(samples, time.Second)

	shuffled := make([]Sample, len(samples))
	copy(shuffled, samples)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got := Reduce(shuffled, time.Second)

		if got.SuccessCount != want.SuccessCount ||
			got.FailedCount != want.FailedCount ||
			got.Latency != want.Latency ||
			got.TTFT != want.TTFT {
			t.Fatalf("Reduction depends on sample order:\nwant %+v\ngot  %+v", want, got)
		}
	}
}

func TestReduceEmptyAndFailureOnly(t *testing.T) {
	empty := Reduce(nil, time.Second)
	if empty.TotalRequests != 0 || empty.SuccessCount != 0 || empty.FailedCount != 0 {
		t.Errorf("Empty reduction must be all zeros, got %+v", empty)
	}
	if empty.Latency != (LatencyStats{}) {
		t.Errorf("Empty reduction must have zero latency stats, got %+v", empty.Latency)
	}

	failures := Reduce([]Sample{
		{Success: false, ErrorKind: ErrConnection},
		{Success: false, ErrorKind: ErrConnection},
	}, time.Second)
	if failures.FailedCount != 2 || failures.SuccessCount != 0 {
		t.Errorf("Expected 2 failures and no successes, got %+v", failures)
	}
	if failures.Throughput != 0 {
		t.Errorf("Throughput over zero successes must be 0, got %v", failures.Throughput)
	}
	if failures.HasTTFT {
		t.Error("Failure-only reduction must not report TTFT statistics")
	}
}

func TestReduceZeroElapsed(t *testing.T) {
	summary := Reduce([]Sample{{Success: true, Duration: time.Millisecond}}, 0)
	if summary.Throughput != 0 || summary.TokenThroughput != 0 {
		t.Errorf("Zero elapsed must not divide: %+v", summary)
	}
}
