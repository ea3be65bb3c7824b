package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"telescout/internal/classify"
	"telescout/internal/config"
	"telescout/internal/engine"
	"telescout/internal/keywords"
	"telescout/internal/ratelimit"
	"telescout/internal/storage/sqlite"
	"telescout/internal/telegram/bridge"
	"telescout/internal/types"
)

// mustLoadConfig loads the config file and applies CLI overrides.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if dbOverride != "" {
		cfg.DBPath = dbOverride
	}
	return cfg
}

func mustOpenStore(cfg *config.Config) *sqlite.Store {
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	return store
}

func newRates(cfg *config.Config) *ratelimit.Controller {
	return ratelimit.New(ratelimit.Config{
		Limits: map[ratelimit.Category]ratelimit.Limit{
			ratelimit.CategorySearch: {Calls: cfg.Rates.SearchPerMinute, Window: time.Minute},
			ratelimit.CategoryJoin:   {Calls: cfg.Rates.JoinsPerHour, Window: time.Hour},
			ratelimit.CategoryInfo:   {Calls: cfg.Rates.InfoPerMinute, Window: time.Minute},
		},
		LongWait: time.Duration(cfg.Rates.LongWaitSeconds) * time.Second,
	})
}

// newSource builds the keyword source: static always, AI-expanded on
// top when enabled. A missing API key disables AI with a warning
// rather than failing the command.
func newSource(cfg *config.Config, log *slog.Logger) keywords.Source {
	static := &keywords.Static{Modifiers: cfg.Modifiers}
	if !cfg.AI.Enabled {
		return static
	}
	aiCfg := keywords.DefaultAIConfig()
	if cfg.AI.Model != "" {
		aiCfg.Model = cfg.AI.Model
	}
	if cfg.AI.Count > 0 {
		aiCfg.Count = cfg.AI.Count
	}
	aiCfg.EveryNRounds = cfg.AI.EveryNRounds

	gen, err := keywords.NewAnthropicGenerator(aiCfg)
	if err != nil {
		log.Warn("AI keyword expansion disabled", "error", err)
		return static
	}
	return keywords.NewAISource(gen, static, aiCfg)
}

func mustBuildEngine(cfg *config.Config, store *sqlite.Store, rates *ratelimit.Controller, log *slog.Logger) *engine.Engine {
	var langs *classify.LanguageDetector
	if cfg.Engine.RequireLanguageMatch {
		langs = classify.NewLanguageDetector()
	}
	eng, err := engine.New(engine.Config{
		Client:               bridge.New(cfg.BridgeAddr),
		Store:                store,
		Rates:                rates,
		Source:               newSource(cfg, log),
		Classifier:           classify.New(),
		Languages:            langs,
		Logger:               log,
		SearchLimit:          cfg.Engine.SearchLimit,
		JoinBorderline:       cfg.Engine.JoinBorderline,
		RequireLanguageMatch: cfg.Engine.RequireLanguageMatch,
		Retry: engine.RetryConfig{
			MaxRetries:        cfg.Engine.MaxRetries,
			InitialBackoff:    time.Second,
			MaxBackoff:        30 * time.Second,
			BackoffMultiplier: 2.0,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return eng
}

// topicsFor returns the named topic, or all topics when name is "".
func topicsFor(cfg *config.Config, name string) ([]types.TopicProfile, error) {
	if name == "" {
		return cfg.Topics, nil
	}
	for _, t := range cfg.Topics {
		if t.Name == name {
			return []types.TopicProfile{t}, nil
		}
	}
	return nil, fmt.Errorf("unknown topic %q", name)
}
