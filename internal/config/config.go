package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type ParticipantConfig struct {
	Kind          string `toml:"kind"`
	Name          string `toml:"name"`
	Persona       string `toml:"persona"`
	APIKey        string `toml:"api_key"`
	BaseLimit     int    `toml:"base_limit"`
	WindowSeconds int    `toml:"window_seconds"`
}

type SchedulerConfig struct {
	TranscriptDir string `toml:"transcript_dir"`
}

type PlannerConfig struct {
	FallbackGoals bool `toml:"fallback_goals"`
	RoundSeconds  int  `toml:"round_seconds"`
	BatchLimit    int  `toml:"batch_limit"`
}

type Config struct {
	Participants []ParticipantConfig `toml:"participants"`
	Scheduler    SchedulerConfig     `toml:"scheduler"`
	Planner      PlannerConfig       `toml:"planner"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file is present:
// a single local reviewer plus the two credentialed advisory seats, which
// stay unavailable until their keys are configured.
func Default() *Config {
	return &Config{
		Participants: []ParticipantConfig{
			{Kind: "local", Name: "local:reviewer", Persona: "resident analyst"},
			{Kind: "oracle", Name: "oracle:remote", Persona: "external oracle"},
			{Kind: "auditor", Name: "auditor:compliance", Persona: "compliance auditor"},
		},
		Scheduler: SchedulerConfig{TranscriptDir: "data/transcripts"},
		Planner:   PlannerConfig{FallbackGoals: false, RoundSeconds: 30, BatchLimit: 4},
	}
}
