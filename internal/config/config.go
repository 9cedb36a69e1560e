package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v4"
)

// Engine identifies one inference endpoint under comparison.
type Engine struct {
	Name    string `yaml:"name" json:"name"`
	BaseURL string `yaml:"base_url" json:"base_url"`
	APIKey  string `yaml:"api_key" json:"-"`
}

// Generation holds the generation parameters shared by every request.
type Generation struct {
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	Temperature float32 `yaml:"temperature" json:"temperature"`
	TopP        float32 `yaml:"top_p" json:"top_p"`
	Stream      bool    `yaml:"stream" json:"stream"`
}

// Duration parses yaml values like "90s" or "2m" into a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config is the full benchmark configuration. Both engines are driven with
// the identical request spec, level ladder and warmup count so the
// comparison is fair.
type Config struct {
	Engines           []Engine   `yaml:"engines" json:"engines"`
	Model             string     `yaml:"model" json:"model"`
	Prompts           []string   `yaml:"prompts" json:"prompts"`
	Generation        Generation `yaml:"generation" json:"generation"`
	ConcurrencyLevels []int      `yaml:"concurrency_levels" json:"concurrency_levels"`
	RequestsPerLevel  int        `yaml:"requests_per_level" json:"requests_per_level"`
	WarmupRequests    int        `yaml:"warmup_requests" json:"warmup_requests"`
	RequestTimeout    Duration   `yaml:"request_timeout" json:"request_timeout"`
	LevelTimeout      Duration   `yaml:"level_timeout" json:"level_timeout"`
}

// Load reads and validates a yaml configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate rejects a configuration before any request is issued.
func (c *Config) Validate() error {
	if len(c.Engines) == 0 {
		return fmt.Errorf("at least one engine is required")
	}
	for i, engine := range c.Engines {
		if engine.BaseURL == "" {
			return fmt.Errorf("engines[%d].base_url is required", i)
		}
	}
	if len(c.Prompts) == 0 {
		return fmt.Errorf("at least one prompt is required")
	}
	if c.Generation.MaxTokens <= 0 {
		return fmt.Errorf("generation.max_tokens must be positive")
	}
	if len(c.ConcurrencyLevels) == 0 {
		return fmt.Errorf("at least one concurrency level is required")
	}
	for _, level := range c.ConcurrencyLevels {
		if level < 1 {
			return fmt.Errorf("concurrency levels must be >= 1, got %d", level)
		}
		if c.RequestsPerLevel < level {
			return fmt.Errorf("requests_per_level (%d) must be >= concurrency level %d", c.RequestsPerLevel, level)
		}
	}
	if c.WarmupRequests < 0 {
		return fmt.Errorf("warmup_requests must be >= 0")
	}
	if c.WarmupRequests >= c.RequestsPerLevel {
		return fmt.Errorf("warmup_requests (%d) must be < requests_per_level (%d)", c.WarmupRequests, c.RequestsPerLevel)
	}
	if c.RequestTimeout < 0 || c.LevelTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// ParseConcurrencyLevels parses a comma-separated list like "1,2,4,8".
func ParseConcurrencyLevels(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	levels := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		level, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid concurrency level %q: %w", part, err)
		}
		if level < 1 {
			return nil, fmt.Errorf("concurrency level must be >= 1, got %d", level)
		}
		levels = append(levels, level)
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("no concurrency levels specified")
	}
	return levels, nil
}
