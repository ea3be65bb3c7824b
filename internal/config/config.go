package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"telescout/internal/types"
)

// Config is the top-level configuration for the discovery engine.
// It is loaded from a YAML file and overridable via environment variables.
type Config struct {
	// DBPath is the path to the SQLite database file
	DBPath string `yaml:"db_path"`

	// BridgeAddr is the base URL of the session bridge sidecar that
	// owns the Telegram account session
	BridgeAddr string `yaml:"bridge_addr"`

	// Topics are the topic profiles to discover groups for.
	// At least one topic is required to run a pass.
	Topics []types.TopicProfile `yaml:"topics"`

	// Modifiers are appended and prepended to static keywords to widen
	// search coverage (e.g. "tashkent", "uz", "guruh")
	Modifiers []string `yaml:"modifiers"`

	Rates  RatesConfig  `yaml:"rates"`
	AI     AIConfig     `yaml:"ai"`
	Engine EngineConfig `yaml:"engine"`
	Runner RunnerConfig `yaml:"runner"`
}

// RatesConfig bounds how fast the engine talks to Telegram.
type RatesConfig struct {
	// SearchPerMinute is the budget for search calls (default: 30)
	SearchPerMinute int `yaml:"search_per_minute"`

	// JoinsPerHour is the budget for join attempts (default: 8)
	JoinsPerHour int `yaml:"joins_per_hour"`

	// InfoPerMinute is the budget for info lookups such as membership
	// checks and username resolution (default: 60)
	InfoPerMinute int `yaml:"info_per_minute"`

	// LongWaitSeconds is the threshold above which a wait is reported
	// to the long-wait hook (default: 120)
	LongWaitSeconds int `yaml:"long_wait_seconds"`
}

// AIConfig controls AI-assisted keyword expansion.
type AIConfig struct {
	// Enabled turns AI keyword expansion on. When off, or when the AI
	// call fails, the engine falls back to static keywords.
	Enabled bool `yaml:"enabled"`

	// Model is the Anthropic model to use for keyword generation
	Model string `yaml:"model"`

	// Count is how many keywords to request per expansion (default: 20)
	Count int `yaml:"count"`

	// EveryNRounds expands with AI only every Nth round; other rounds
	// use static keywords alone (default: 2)
	EveryNRounds int `yaml:"every_n_rounds"`
}

// EngineConfig controls classification and join behavior within a pass.
type EngineConfig struct {
	// SearchLimit is the maximum results requested per search query
	SearchLimit int `yaml:"search_limit"`

	// JoinBorderline also joins borderline-classified groups rather
	// than only accepted ones (default: false)
	JoinBorderline bool `yaml:"join_borderline"`

	// RequireLanguageMatch skips candidates whose detected language
	// confidently differs from the topic's language hint (default: false)
	RequireLanguageMatch bool `yaml:"require_language_match"`

	// MaxRetries bounds retries for transient search failures (default: 3)
	MaxRetries int `yaml:"max_retries"`
}

// RunnerConfig controls the continuous runner loop.
type RunnerConfig struct {
	// IntervalMinutes is the delay between passes (default: 60)
	IntervalMinutes int `yaml:"interval_minutes"`

	// MaxRounds stops the runner after this many rounds; 0 runs forever
	MaxRounds int `yaml:"max_rounds"`
}

// Default returns the default configuration. Topics must still be
// provided before the result validates.
func Default() *Config {
	return &Config{
		DBPath:     "telescout.db",
		BridgeAddr: "http://127.0.0.1:8787",
		Rates: RatesConfig{
			SearchPerMinute: 30,
			JoinsPerHour:    8,
			InfoPerMinute:   60,
			LongWaitSeconds: 120,
		},
		AI: AIConfig{
			Enabled:      false,
			Model:        "claude-3-5-haiku-latest",
			Count:        20,
			EveryNRounds: 2,
		},
		Engine: EngineConfig{
			SearchLimit:    50,
			JoinBorderline: false,
			MaxRetries:     3,
		},
		Runner: RunnerConfig{
			IntervalMinutes: 60,
		},
	}
}

// Load reads a YAML config file, applies environment overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv overrides config fields from environment variables.
//
// Environment variables:
//   - TELESCOUT_DB_PATH: database file path
//   - TELESCOUT_BRIDGE_ADDR: session bridge base URL
//   - TELESCOUT_AI_ENABLED: enable AI keyword expansion
//   - TELESCOUT_AI_MODEL: Anthropic model name
//   - TELESCOUT_INTERVAL_MINUTES: delay between passes
func (c *Config) applyEnv() error {
	if err := parseEnvString("TELESCOUT_DB_PATH", &c.DBPath); err != nil {
		return err
	}
	if err := parseEnvString("TELESCOUT_BRIDGE_ADDR", &c.BridgeAddr); err != nil {
		return err
	}
	if err := parseEnvBool("TELESCOUT_AI_ENABLED", &c.AI.Enabled); err != nil {
		return err
	}
	if err := parseEnvString("TELESCOUT_AI_MODEL", &c.AI.Model); err != nil {
		return err
	}
	if err := parseEnvInt("TELESCOUT_INTERVAL_MINUTES", &c.Runner.IntervalMinutes); err != nil {
		return err
	}
	return nil
}

// Validate checks if the configuration has valid values
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.BridgeAddr == "" {
		return fmt.Errorf("bridge_addr is required")
	}
	if len(c.Topics) == 0 {
		return fmt.Errorf("at least one topic is required")
	}
	seen := make(map[string]bool)
	for i := range c.Topics {
		if err := c.Topics[i].Validate(); err != nil {
			return fmt.Errorf("topic %d: %w", i, err)
		}
		if seen[c.Topics[i].Name] {
			return fmt.Errorf("duplicate topic name %q", c.Topics[i].Name)
		}
		seen[c.Topics[i].Name] = true
	}
	if c.Rates.SearchPerMinute < 1 {
		return fmt.Errorf("rates.search_per_minute must be at least 1 (got %d)", c.Rates.SearchPerMinute)
	}
	if c.Rates.JoinsPerHour < 1 {
		return fmt.Errorf("rates.joins_per_hour must be at least 1 (got %d)", c.Rates.JoinsPerHour)
	}
	if c.Rates.InfoPerMinute < 1 {
		return fmt.Errorf("rates.info_per_minute must be at least 1 (got %d)", c.Rates.InfoPerMinute)
	}
	if c.Rates.LongWaitSeconds < 0 {
		return fmt.Errorf("rates.long_wait_seconds cannot be negative (got %d)", c.Rates.LongWaitSeconds)
	}
	if c.AI.Count < 1 {
		return fmt.Errorf("ai.count must be at least 1 (got %d)", c.AI.Count)
	}
	if c.AI.EveryNRounds < 0 {
		return fmt.Errorf("ai.every_n_rounds cannot be negative (got %d)", c.AI.EveryNRounds)
	}
	if c.Engine.SearchLimit < 1 || c.Engine.SearchLimit > 100 {
		return fmt.Errorf("engine.search_limit must be between 1 and 100 (got %d)", c.Engine.SearchLimit)
	}
	if c.Engine.MaxRetries < 0 || c.Engine.MaxRetries > 10 {
		return fmt.Errorf("engine.max_retries must be between 0 and 10 (got %d)", c.Engine.MaxRetries)
	}
	if c.Runner.IntervalMinutes < 1 {
		return fmt.Errorf("runner.interval_minutes must be at least 1 (got %d)", c.Runner.IntervalMinutes)
	}
	if c.Runner.MaxRounds < 0 {
		return fmt.Errorf("runner.max_rounds cannot be negative (got %d)", c.Runner.MaxRounds)
	}
	return nil
}

// PassInterval returns the delay between passes as a duration.
func (c *Config) PassInterval() time.Duration {
	return time.Duration(c.Runner.IntervalMinutes) * time.Minute
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool parses a bool from an environment variable
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvString parses a string from an environment variable
func parseEnvString(key string, dest *string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	*dest = value
	return nil
}
