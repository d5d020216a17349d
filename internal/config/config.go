package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// Config is the persistent application configuration
type Config struct {
	// Segmentation engine settings
	Engine EngineConfig `json:"engine"`

	// Event model settings
	Model ModelConfig `json:"model"`

	// Replay pacing for streamed input
	Replay ReplayConfig `json:"replay"`

	// DBPath is the run store location; empty means ~/.eventseg/eventseg.db
	DBPath string `json:"db_path,omitempty"`
}

// EngineConfig holds the sticky-clustering parameters
type EngineConfig struct {
	// Alpha is the sCRP concentration parameter: the unnormalized mass
	// reserved for opening a brand-new event type.
	Alpha float64 `json:"alpha"`

	// Lambda is the sCRP stickiness parameter: extra mass for repeating
	// the immediately preceding event type.
	Lambda float64 `json:"lambda"`

	// MinimizeMemory skips diagnostic matrices and releases all event
	// models at run end.
	MinimizeMemory bool `json:"minimize_memory"`
}

// ModelConfig holds event model settings
type ModelConfig struct {
	// Kind selects the predictive model: "gaussian" or "knn"
	Kind string `json:"kind"`

	// LearningRate for the gaussian model's LMS coefficient updates
	LearningRate float64 `json:"learning_rate"`

	// NoiseFloor is the minimum per-dimension variance
	NoiseFloor float64 `json:"noise_floor"`

	// Neighbors is the HNSW search breadth for the knn model
	Neighbors int `json:"neighbors"`
}

// ReplayConfig paces observation replay in the CLI
type ReplayConfig struct {
	// RatePerSec is observations per second; 0 disables pacing
	RatePerSec float64 `json:"rate_per_sec"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Alpha:  10.0,
			Lambda: 1.0,
		},
		Model: ModelConfig{
			Kind:         "gaussian",
			LearningRate: 0.1,
			NoiseFloor:   0.05,
			Neighbors:    5,
		},
		Replay: ReplayConfig{
			RatePerSec: 0,
		},
	}
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".eventseg", "config.json")
}

// DefaultDBPath returns the default run store location
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".eventseg", "eventseg.db")
}

// Load reads config from disk, or returns defaults
func Load() (*Config, error) {
	path := ConfigPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			cfg.AutoPopulateFromEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), nil
	}

	cfg.AutoPopulateFromEnv()
	return &cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	path := ConfigPath()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// AutoPopulateFromEnv overrides settings from environment variables
func (c *Config) AutoPopulateFromEnv() {
	if v := os.Getenv("EVENTSEG_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Engine.Alpha = f
		}
	}
	if v := os.Getenv("EVENTSEG_LAMBDA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Engine.Lambda = f
		}
	}
	if v := os.Getenv("EVENTSEG_MODEL"); v != "" {
		c.Model.Kind = v
	}
	if v := os.Getenv("EVENTSEG_DB"); v != "" {
		c.DBPath = v
	}
}
