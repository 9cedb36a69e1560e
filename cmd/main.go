package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"enginebench/internal/api"
	"enginebench/internal/config"

	"github.com/spf13/pflag"
)

// defaultPrompts is the built-in prompt pool used when no config file and
// no --prompt flag is given. Varied lengths keep the workload realistic.
var defaultPrompts = []string{
	"Explain the concept of recursion in programming.",
	"Write a short poem about the ocean.",
	"Summarize the key principles of machine learning.",
	"Describe the water cycle in simple terms.",
	"Explain how a neural network learns.",
}

func main() {
	configPath := pflag.String("config", "", "Path to a yaml configuration file (flags below are ignored when set, except --format)")
	baseURLs := pflag.StringSliceP("base-url", "u", nil, "Base URL of an engine endpoint; repeat to compare engines")
	engineNames := pflag.StringSlice("engine-name", nil, "Display name per engine, matched to --base-url by position")
	apiKey := pflag.StringP("api-key", "k", "", "API key for authentication")
	model := pflag.StringP("model", "m", "", "Model to be used for the requests (discovered from the first engine if empty)")
	prompt := pflag.StringP("prompt", "p", "", "Single prompt to use instead of the built-in prompt pool")
	concurrencyStr := pflag.StringP("concurrency", "c", "1,2,4,8,16,32", "Comma-separated list of concurrency levels")
	requestsPerLevel := pflag.IntP("requests", "n", 20, "Requests issued at each concurrency level")
	warmup := pflag.IntP("warmup", "w", 0, "Completed samples per level excluded from statistics")
	maxTokens := pflag.IntP("max-tokens", "t", 256, "Maximum number of tokens to generate")
	temperature := pflag.Float32("temperature", 0.7, "Sampling temperature")
	topP := pflag.Float32("top-p", 0.9, "Nucleus sampling probability mass")
	stream := pflag.Bool("stream", true, "Stream responses to measure time to first token")
	requestTimeout := pflag.Duration("request-timeout", 2*time.Minute, "Maximum wait for a single request")
	levelTimeout := pflag.Duration("level-timeout", 0, "Wall-clock ceiling for a whole concurrency level (0 disables)")
	format := pflag.StringP("format", "f", "", "Output format (json or yaml; default prints tables)")
	help := pflag.BoolP("help", "h", false, "Show this help message")
	pflag.Parse()

	if *help {
		fmt.Printf("Usage of %s:\n", os.Args[0])
		pflag.PrintDefaults()
		os.Exit(0)
	}

	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
	} else {
		if len(*baseURLs) == 0 {
			log.Fatalf("--base-url or --config is required")
		}

		concurrencyLevels, err := config.ParseConcurrencyLevels(*concurrencyStr)
		if err != nil {
			log.Fatalf("Invalid concurrency levels: %v", err)
		}

		prompts := defaultPrompts
		if *prompt != "" {
			prompts = []string{*prompt}
		}

		cfg = &config.Config{
			Model:   *model,
			Prompts: prompts,
			Generation: config.Generation{
				MaxTokens:   *maxTokens,
				Temperature: *temperature,
				TopP:        *topP,
				Stream:      *stream,
			},
			ConcurrencyLevels: concurrencyLevels,
			RequestsPerLevel:  *requestsPerLevel,
			WarmupRequests:    *warmup,
			RequestTimeout:    config.Duration(*requestTimeout),
			LevelTimeout:      config.Duration(*levelTimeout),
		}
		for i, url := range *baseURLs {
			name := fmt.Sprintf("engine-%d", i+1)
			if i < len(*engineNames) {
				name = (*engineNames)[i]
			}
			cfg.Engines = append(cfg.Engines, config.Engine{Name: name, BaseURL: url, APIKey: *apiKey})
		}

		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Discover the model from the first engine when none is configured.
	if cfg.Model == "" {
		first := cfg.Engines[0]
		discovered, err := api.NewClient(first.BaseURL, first.APIKey).FirstAvailableModel(ctx)
		if err != nil {
			log.Fatalf("Error discovering model: %v", err)
		}
		cfg.Model = discovered
	}

	benchmark := Benchmark{Config: cfg}

	if *format == "" {
		if _, err := benchmark.runCli(ctx); err != nil {
			log.Fatalf("Error running benchmark: %v", err)
		}
		return
	}

	report, err := benchmark.run(ctx)
	if err != nil {
		log.Fatalf("Error running benchmark: %v", err)
	}

	var output string
	switch *format {
	case "json":
		output, err = report.Json()
	case "yaml":
		output, err = report.Yaml()
	default:
		log.Fatalf("Invalid format specified: %s", *format)
	}
	if err != nil {
		log.Fatalf("Error formatting benchmark result: %v", err)
	}
	fmt.Println(output)
}
