// Package keywords expands a topic profile into search queries.
package keywords

import (
	"context"
	"errors"
	"strings"
	"time"

	"telescout/internal/types"
)

// ErrDegraded signals that expansion fell back to the static list because
// the AI collaborator was unavailable or returned garbage. The queries
// returned alongside it are valid; the pass continues.
var ErrDegraded = errors.New("keyword expansion degraded")

// Source produces search queries for a topic. Implementations must return a
// finite, deduplicated sequence per call.
type Source interface {
	Expand(ctx context.Context, profile types.TopicProfile, round int) ([]types.SearchQuery, error)
}

// Static returns the profile's configured keyword list, optionally combined
// with modifier words. The output is identical across rounds.
type Static struct {
	// Modifiers, when set, are appended and prepended to every keyword in
	// addition to the bare keyword ("ielts" -> "ielts guruh", "guruh ielts").
	Modifiers []string
}

// Expand implements Source
func (s *Static) Expand(_ context.Context, profile types.TopicProfile, _ int) ([]types.SearchQuery, error) {
	now := time.Now()
	texts := make([]string, 0, len(profile.Keywords)*(1+2*len(s.Modifiers)))
	for _, kw := range profile.Keywords {
		texts = append(texts, kw)
		for _, mod := range s.Modifiers {
			texts = append(texts, kw+" "+mod, mod+" "+kw)
		}
	}

	queries := make([]types.SearchQuery, 0, len(texts))
	for _, text := range dedupe(texts) {
		queries = append(queries, types.SearchQuery{
			Text:        text,
			Origin:      types.OriginStatic,
			GeneratedAt: now,
		})
	}
	return queries, nil
}

// dedupe lowercases, trims and deduplicates, preserving first-seen order
func dedupe(texts []string) []string {
	seen := make(map[string]bool, len(texts))
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
