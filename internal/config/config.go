// Package config loads run configuration from a YAML file with API keys
// taken from the environment (optionally a .env file).
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Oracle selects and tunes the LLM decider backend.
type Oracle struct {
	Provider string  `yaml:"provider"` // "", "gemini", "ollama"
	Model    string  `yaml:"model"`
	BaseURL  string  `yaml:"base_url"` // ollama only
	TimeoutS float64 `yaml:"timeout_s"`
}

// Config is the full run configuration.
type Config struct {
	Seed       int64   `yaml:"seed"`
	DurationS  float64 `yaml:"duration_s"`
	AgentCount int     `yaml:"agent_count"`
	Speed      float64 `yaml:"speed"`
	Bins       int     `yaml:"bins"`

	BaselineDir string `yaml:"baseline_dir"`
	ExpOutDir   string `yaml:"exp_out_dir"`
	StorePath   string `yaml:"store_path"`

	SpawnMode   string  `yaml:"spawn_mode"` // center, random_all, cluster
	MeetingProb float64 `yaml:"meeting_prob"`
	Oracle      Oracle  `yaml:"oracle"`

	// Populated from the environment, never from YAML.
	GeminiAPIKey string `yaml:"-"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Seed:        42,
		DurationS:   120,
		AgentCount:  50,
		Bins:        25,
		BaselineDir: "assets/baseline",
		ExpOutDir:   "out/experiments",
		Oracle:      Oracle{TimeoutS: 30},
	}
}

// Load reads the YAML file at path, overlays environment keys, and
// validates. An empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DurationS <= 0 {
		return fmt.Errorf("duration_s must be positive, got %g", c.DurationS)
	}
	if c.AgentCount < 1 {
		return fmt.Errorf("agent_count must be at least 1, got %d", c.AgentCount)
	}
	if c.Bins < 1 {
		c.Bins = 25
	}
	if c.Oracle.TimeoutS <= 0 {
		c.Oracle.TimeoutS = 30
	}
	switch c.Oracle.Provider {
	case "", "gemini", "ollama":
	default:
		return fmt.Errorf("unknown oracle provider %q", c.Oracle.Provider)
	}
	switch c.SpawnMode {
	case "", "center", "random_all", "cluster":
	default:
		return fmt.Errorf("unknown spawn_mode %q", c.SpawnMode)
	}
	return nil
}
