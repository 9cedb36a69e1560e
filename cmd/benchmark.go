package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"enginebench/internal/api"
	"enginebench/internal/loadgen"

	"github.com/schollz/progressbar/v3"
)

func (benchmark *Benchmark) spec() loadgen.RequestSpec {
	cfg := benchmark.Config
	return loadgen.RequestSpec{
		Model:       cfg.Model,
		Prompts:     cfg.Prompts,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
		TopP:        cfg.Generation.TopP,
		Stream:      cfg.Generation.Stream,
	}
}

// runCli benchmarks every configured engine one after another, printing a
// results table per engine as levels complete. Engines are never run
// concurrently with each other so they do not contend for host resources.
func (benchmark *Benchmark) runCli(ctx context.Context) (BenchmarkReport, error) {
	cfg := benchmark.Config
	spec := benchmark.spec()

	report := BenchmarkReport{
		Model:     cfg.Model,
		Timestamp: time.Now(),
	}

	for _, engine := range cfg.Engines {
		fmt.Printf("\n============ %s (%s) ============\n", engine.Name, engine.BaseURL)
		fmt.Println("| Concurrency | Throughput (req/s) | Mean Latency (s) | P50 (s) | P99 (s) | Mean TTFT (s) | Failed |")
		fmt.Println("|-------------|--------------------|------------------|---------|---------|---------------|--------|")

		runner := loadgen.NewRunner(api.NewClient(engine.BaseURL, engine.APIKey))
		result := loadgen.EngineResult{Engine: engine.Name, Endpoint: engine.BaseURL}

		for _, concurrency := range cfg.ConcurrencyLevels {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			default:
			}

			run, err := benchmark.measureLevel(ctx, runner, spec, concurrency)
			if err != nil {
				return report, fmt.Errorf("engine %s, concurrency %d: %w", engine.Name, concurrency, err)
			}
			result.Runs = append(result.Runs, run)

			fmt.Printf("| %11d | %18.2f | %16.3f | %7.3f | %7.3f | %13.3f | %6d |\n",
				run.Concurrency,
				run.Summary.Throughput,
				run.Summary.Latency.Mean,
				run.Summary.Latency.P50,
				run.Summary.Latency.P99,
				run.Summary.TTFT.Mean,
				run.Summary.FailedCount,
			)
		}

		report.Engines = append(report.Engines, result)
	}

	fmt.Println()
	return report, nil
}

// run benchmarks every configured engine without console output, for the
// json and yaml formats.
func (benchmark *Benchmark) run(ctx context.Context) (BenchmarkReport, error) {
	cfg := benchmark.Config
	spec := benchmark.spec()

	report := BenchmarkReport{
		Model:     cfg.Model,
		Timestamp: time.Now(),
	}

	for _, engine := range cfg.Engines {
		runner := loadgen.NewRunner(api.NewClient(engine.BaseURL, engine.APIKey))

		result, err := runner.BenchmarkEndpoint(ctx, engine.Name, engine.BaseURL, spec, loadgen.EngineOptions{
			Levels:           cfg.ConcurrencyLevels,
			RequestsPerLevel: cfg.RequestsPerLevel,
			WarmupCount:      cfg.WarmupRequests,
			RequestTimeout:   time.Duration(cfg.RequestTimeout),
			LevelTimeout:     time.Duration(cfg.LevelTimeout),
		})
		if err != nil {
			return report, fmt.Errorf("engine %s: %w", engine.Name, err)
		}

		report.Engines = append(report.Engines, result)
	}

	return report, nil
}

func (benchmark *Benchmark) measureLevel(ctx context.Context, runner *loadgen.Runner, spec loadgen.RequestSpec, concurrency int) (loadgen.ConcurrencyRun, error) {
	cfg := benchmark.Config

	bar := progressbar.NewOptions(cfg.RequestsPerLevel,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(fmt.Sprintf("Concurrency %d", concurrency)),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("reqs"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)

	run, err := runner.RunLevel(ctx, spec, loadgen.LevelOptions{
		Concurrency:    concurrency,
		TotalRequests:  cfg.RequestsPerLevel,
		WarmupCount:    cfg.WarmupRequests,
		RequestTimeout: time.Duration(cfg.RequestTimeout),
		LevelTimeout:   time.Duration(cfg.LevelTimeout),
		OnSample: func(loadgen.Sample) {
			bar.Add(1)
		},
	})

	bar.Finish()
	bar.Clear()
	bar.Close()

	if err != nil {
		return run, fmt.Errorf("measurement error: %w", err)
	}
	return run, nil
}
