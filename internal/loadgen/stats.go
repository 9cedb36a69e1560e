package loadgen

import (
	"math"
	"sort"
	"time"
)

// LatencyStats holds summary statistics over a set of durations, in seconds.
type LatencyStats struct {
	Mean float64 `json:"mean" yaml:"mean"`
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
	P50  float64 `json:"p50" yaml:"p50"`
	P90  float64 `json:"p90" yaml:"p90"`
	P99  float64 `json:"p99" yaml:"p99"`
}

// Summary is the reduction of one run's samples. Counts cover every issued
// request, warmup included. Latency and TTFT statistics cover only
// successful non-warmup samples.
type Summary struct {
	TotalRequests         int               `json:"total_requests" yaml:"total-requests"`
	SuccessCount          int               `json:"success_count" yaml:"success-count"`
	FailedCount           int               `json:"failed_count" yaml:"failed-count"`
	FailuresByKind        map[ErrorKind]int `json:"failures_by_kind,omitempty" yaml:"failures-by-kind,omitempty"`
	Throughput            float64           `json:"throughput" yaml:"throughput"`
	TotalCompletionTokens int               `json:"total_completion_tokens" yaml:"total-completion-tokens"`
	TokenThroughput       float64           `json:"token_throughput" yaml:"token-throughput"`
	StatSamples           int               `json:"stat_samples" yaml:"stat-samples"`
	Latency               LatencyStats      `json:"latency" yaml:"latency"`
	HasTTFT               bool              `json:"has_ttft" yaml:"has-ttft"`
	TTFT                  LatencyStats      `json:"ttft" yaml:"ttft"`
}

// Reduce computes the summary for a set of samples and the wall-clock time
// the run took. The reduction is a pure function of the sample multiset:
// it sorts the values it needs, so arrival order does not matter.
func Reduce(samples []Sample, elapsed time.Duration) Summary {
	s := Summary{
		TotalRequests: len(samples),
	}

	var latencies, ttfts []float64
	for _, sample := range samples {
		if !sample.Success {
			s.FailedCount++
			if s.FailuresByKind == nil {
				s.FailuresByKind = make(map[ErrorKind]int)
			}
			s.FailuresByKind[sample.ErrorKind]++
			continue
		}
		s.SuccessCount++
		s.TotalCompletionTokens += sample.CompletionTokens
		if sample.Warmup {
			continue
		}
		latencies = append(latencies, sample.Duration.Seconds())
		if sample.HasTTFT {
			ttfts = append(ttfts, sample.TTFT.Seconds())
		}
	}

	if elapsed > 0 {
		s.Throughput = float64(s.SuccessCount) / elapsed.Seconds()
		s.TokenThroughput = float64(s.TotalCompletionTokens) / elapsed.Seconds()
	}

	s.StatSamples = len(latencies)
	s.Latency = reduceValues(latencies)
	if len(ttfts) > 0 {
		s.HasTTFT = true
		s.TTFT = reduceValues(ttfts)
	}

	return s
}

func reduceValues(values []float64) LatencyStats {
	if len(values) == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return LatencyStats{
		Mean: mean(sorted),
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		P50:  percentile(sorted, 50),
		P90:  percentile(sorted, 90),
		P99:  percentile(sorted, 99),
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// percentile computes the p-th percentile of a sorted slice using linear
// interpolation between the two nearest ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	index := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
