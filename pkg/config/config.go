package config

import (
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App             AppConfig                 `yaml:"app"`
	Providers       map[string]ProviderConfig `yaml:"providers"`
	Workflow        WorkflowConfig            `yaml:"workflow"`
	TokenManagement TokenManagementConfig     `yaml:"token_management"`
	Memory          MemoryConfig              `yaml:"memory"`
}

type AppConfig struct {
	Name      string `yaml:"name"`
	Workspace string `yaml:"workspace"`
	PromptDir string `yaml:"prompt_dir"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
	Enabled bool   `yaml:"enabled"`
}

type WorkflowConfig struct {
	MaxPlanIterations             int  `yaml:"max_plan_iterations"`
	MaxStepIterations             int  `yaml:"max_step_iterations"`
	MaxSearchResults              int  `yaml:"max_search_results"`
	AutoAcceptPlan                bool `yaml:"auto_accept_plan"`
	EnableBackgroundInvestigation bool `yaml:"enable_background_investigation"`
}

type MemoryConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

// TokenManagementConfig bounds the context passed to model calls. Model
// limits are keyed by substring of the model name; stages without an
// entry in Strategies are passed through untrimmed.
type TokenManagementConfig struct {
	Enabled      bool                        `yaml:"enabled"`
	SafetyMargin float64                     `yaml:"safety_margin"`
	DefaultLimit int                         `yaml:"default_limit"`
	ModelLimits  map[string]int              `yaml:"model_limits"`
	Strategies   map[string]TrimmingStrategy `yaml:"strategies"`
	Observations ObservationConfig           `yaml:"observations"`
}

// TrimmingStrategy controls how one stage's context is trimmed. The
// strategy key names which end of the history survives: "last" keeps
// the most recent messages, "first" the oldest.
type TrimmingStrategy struct {
	MaxTokens        int    `yaml:"max_tokens"`
	Direction        string `yaml:"strategy"`
	IncludeSystem    bool   `yaml:"include_system"`
	ReserveForOutput int    `yaml:"reserve_for_output"`
}

type ObservationConfig struct {
	MaxFullObservations  int `yaml:"max_full_observations"`
	MaxObservationLength int `yaml:"max_observation_length"`
	SummaryTargetLength  int `yaml:"summary_target_length"`
}

// Load reads a YAML config file, falling back to built-in defaults
// when the file is missing or malformed.
func Load(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Config file %s not readable: %v (using defaults)", path, err)
		return Default()
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("Config file %s malformed: %v (using defaults)", path, err)
		return Default()
	}
	return cfg
}

func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:      "khoj",
			Workspace: "./workspace",
		},
		Workflow: WorkflowConfig{
			MaxPlanIterations:             1,
			MaxStepIterations:             25,
			MaxSearchResults:              10,
			AutoAcceptPlan:                false,
			EnableBackgroundInvestigation: false,
		},
		TokenManagement: TokenManagementConfig{
			Enabled:      true,
			SafetyMargin: 0.2,
			DefaultLimit: 32768,
			ModelLimits: map[string]int{
				"gemini":   1048576,
				"claude":   204800,
				"deepseek": 65536,
				"qwen":     32768,
				"llama":    131072,
			},
			Strategies: map[string]TrimmingStrategy{
				"planning": {
					MaxTokens:     25000,
					Direction:     "last",
					IncludeSystem: true,
				},
				"synthesis": {
					MaxTokens:     30000,
					Direction:     "last",
					IncludeSystem: true,
				},
				"research": {
					MaxTokens:        20000,
					Direction:        "last",
					IncludeSystem:    true,
					ReserveForOutput: 4000,
				},
				"background_investigation": {
					MaxTokens: 2000,
					Direction: "first",
				},
			},
			Observations: ObservationConfig{
				MaxFullObservations:  5,
				MaxObservationLength: 8000,
				SummaryTargetLength:  2000,
			},
		},
		Memory: MemoryConfig{
			Type: "sqlite",
			Path: "khoj.db",
		},
	}
}

// GetDefaultProvider returns the first enabled provider
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// ModelLimit resolves a model's context window by substring match
// against the configured limit table, falling back to the default.
func (c *Config) ModelLimit(model string) int {
	lowered := strings.ToLower(model)
	for key, limit := range c.TokenManagement.ModelLimits {
		if key != "" && strings.Contains(lowered, strings.ToLower(key)) {
			return limit
		}
	}
	if c.TokenManagement.DefaultLimit > 0 {
		return c.TokenManagement.DefaultLimit
	}
	return 32768
}

// Strategy returns the trimming strategy for a stage; ok is false when
// the stage has no configured strategy.
func (c *Config) Strategy(stage string) (TrimmingStrategy, bool) {
	s, ok := c.TokenManagement.Strategies[stage]
	return s, ok
}
