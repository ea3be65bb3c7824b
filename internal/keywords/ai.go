package keywords

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"

	"telescout/internal/types"
)

// Generator is the keyword-generation collaborator. It may be slow or
// unavailable; failures are DEGRADED, never fatal.
type Generator interface {
	Generate(ctx context.Context, topic string, count int) ([]string, error)
}

// AIConfig holds settings for the AI-expanded keyword source
type AIConfig struct {
	APIKey       string `yaml:"api_key,omitempty"` // falls back to ANTHROPIC_API_KEY
	Model        string `yaml:"model"`
	MaxTokens    int    `yaml:"max_tokens"`
	Count        int    `yaml:"count"`            // keywords requested per topic
	EveryNRounds int    `yaml:"every_n_rounds"`   // AI expansion runs on rounds divisible by N; 0 disables
	MaxInFlight  int    `yaml:"max_in_flight"`    // concurrent generation calls
}

// DefaultAIConfig returns the default AI expansion settings
func DefaultAIConfig() AIConfig {
	return AIConfig{
		Model:        "claude-3-5-haiku-20241022",
		MaxTokens:    1024,
		Count:        20,
		EveryNRounds: 2,
		MaxInFlight:  2,
	}
}

// AISource merges AI-generated query variants with the static list. The
// static source is the fallback, not a base class: when the generator errors
// or the round is not an AI round, the static expansion is returned as-is.
type AISource struct {
	gen    Generator
	static *Static
	cfg    AIConfig
}

// NewAISource creates an AI-expanded source over the given generator
func NewAISource(gen Generator, static *Static, cfg AIConfig) *AISource {
	if static == nil {
		static = &Static{}
	}
	if cfg.Count <= 0 {
		cfg.Count = DefaultAIConfig().Count
	}
	return &AISource{gen: gen, static: static, cfg: cfg}
}

// Expand implements Source. On AI rounds it asks the generator for variants
// of the topic, merges them with the static list and local suffix
// variations, and deduplicates case-insensitively. Returns ErrDegraded
// (with the static queries) when the generator fails.
func (s *AISource) Expand(ctx context.Context, profile types.TopicProfile, round int) ([]types.SearchQuery, error) {
	staticQueries, err := s.static.Expand(ctx, profile, round)
	if err != nil {
		return nil, err
	}

	if s.cfg.EveryNRounds <= 0 || round%s.cfg.EveryNRounds != 0 {
		return staticQueries, nil
	}

	generated, err := s.gen.Generate(ctx, profile.Name, s.cfg.Count)
	if err != nil {
		return staticQueries, fmt.Errorf("%w: %v", ErrDegraded, err)
	}

	// Local suffix variations are always merged in; the model tends to skip
	// the boring ones.
	variants := append(generated, FallbackVariations(profile.Name)...)

	now := time.Now()
	seen := make(map[string]bool, len(staticQueries)+len(variants))
	queries := make([]types.SearchQuery, 0, len(staticQueries)+len(variants))
	for _, q := range staticQueries {
		seen[q.Text] = true
		queries = append(queries, q)
	}
	for _, text := range dedupe(variants) {
		if seen[text] {
			continue
		}
		seen[text] = true
		queries = append(queries, types.SearchQuery{
			Text:        text,
			Origin:      types.OriginAI,
			GeneratedAt: now,
		})
	}

	if len(queries) == len(staticQueries) {
		// Model answered but produced nothing new or nothing parseable.
		return staticQueries, fmt.Errorf("%w: generator returned no usable keywords", ErrDegraded)
	}
	return queries, nil
}

// FallbackVariations derives search variants of a word without AI help:
// agglutinative suffixes and the underscore forms Telegram handles use.
func FallbackVariations(word string) []string {
	word = strings.ToLower(strings.TrimSpace(word))
	var cleaned strings.Builder
	for _, r := range word {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			cleaned.WriteRune(r)
		}
	}
	word = cleaned.String()
	if word == "" {
		return nil
	}

	suffixes := []string{"", "lik", "lar", "chilar", "uz", "group", "chat", "guruh",
		"_group", "_chat", "_guruh", "_uz", "_official"}
	variants := make([]string, 0, len(suffixes)+2)
	for _, suffix := range suffixes {
		variants = append(variants, word+suffix)
	}
	variants = append(variants, "uz_"+word, "official_"+word)
	return variants
}

const generatorSystemPrompt = `You generate Telegram search keywords. Given a topic, produce search
query variants that real groups about the topic would use in their names:
misspellings, transliterations (Latin and Cyrillic), agglutinative suffix
forms (-lik, -lar, -chilar), and combinations with group/chat/guruh/community.
Telegram usernames contain no spaces and only a-z, 0-9 and underscore, so
include underscore-joined variants too.
Reply with ONLY the keywords, comma-separated, nothing else.`

// AnthropicGenerator implements Generator against the Anthropic API,
// bounding concurrent calls with a weighted semaphore.
type AnthropicGenerator struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	sem       *semaphore.Weighted
}

// NewAnthropicGenerator creates a generator from config. The API key comes
// from config or the ANTHROPIC_API_KEY environment variable.
func NewAnthropicGenerator(cfg AIConfig) (*AnthropicGenerator, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultAIConfig().Model
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultAIConfig().MaxTokens
	}
	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = DefaultAIConfig().MaxInFlight
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicGenerator{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
		sem:       semaphore.NewWeighted(int64(maxInFlight)),
	}, nil
}

// Generate asks the model for count keyword variants of the topic
func (g *AnthropicGenerator) Generate(ctx context.Context, topic string, count int) ([]string, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer g.sem.Release(1)

	prompt := fmt.Sprintf("Generate %d Telegram search keyword variants for the topic %q.", count, topic)

	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(g.maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: generatorSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	parsed := ParseKeywordList(text)
	if len(parsed) == 0 {
		return nil, fmt.Errorf("no keywords in model response")
	}

	slog.Debug("generated keywords", "topic", topic, "count", len(parsed))
	return parsed, nil
}

// ParseKeywordList extracts keywords from a comma-separated model response,
// tolerating bullet lists and stray prose that some models produce anyway.
func ParseKeywordList(text string) []string {
	text = strings.ReplaceAll(text, "\n", ",")
	parts := strings.Split(text, ",")

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.TrimLeft(p, "-•*0123456789. ")
		p = strings.Trim(p, `"'`)
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || len(p) > 64 || strings.ContainsAny(p, ":;") {
			// Headers like "Here are the keywords:" are noise, not keywords.
			continue
		}
		out = append(out, p)
	}
	return dedupe(out)
}
