package main

import (
	"time"

	"enginebench/internal/config"
	"enginebench/internal/loadgen"
)

type Benchmark struct {
	Config *config.Config
}

type BenchmarkReport struct {
	Model     string                 `json:"model" yaml:"model"`
	Timestamp time.Time              `json:"timestamp" yaml:"timestamp"`
	Engines   []loadgen.EngineResult `json:"engines" yaml:"engines"`
}
