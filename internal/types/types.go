package types

import (
	"fmt"
	"strings"
	"time"
)

// TopicProfile is a named classification target. Profiles are loaded from
// config at startup and treated as immutable for the lifetime of a run.
type TopicProfile struct {
	Name          string   `yaml:"name" json:"name"`
	Keywords      []string `yaml:"keywords" json:"keywords"`             // static search queries
	BoostTerms    []string `yaml:"boost_terms" json:"boost_terms"`       // substrings that indicate relevance, in priority order
	Disqualifiers []string `yaml:"disqualifiers" json:"disqualifiers"`   // substrings that reject a candidate outright
	Threshold     float64  `yaml:"threshold" json:"threshold"`           // minimum confidence for ACCEPT
	Language      string   `yaml:"language,omitempty" json:"language,omitempty"` // ISO 639-1 hint, e.g. "uz", "ru", "en"
}

// Validate checks if the profile has valid field values
func (p *TopicProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile name is required")
	}
	if len(p.Keywords) == 0 {
		return fmt.Errorf("profile %q has no keywords", p.Name)
	}
	if len(p.BoostTerms) == 0 {
		return fmt.Errorf("profile %q has no boost terms", p.Name)
	}
	if p.Threshold < 0 || p.Threshold > 1 {
		return fmt.Errorf("profile %q threshold must be in [0,1] (got %g)", p.Name, p.Threshold)
	}
	return nil
}

// QueryOrigin tags where a search query came from
type QueryOrigin string

const (
	OriginStatic QueryOrigin = "static"
	OriginAI     QueryOrigin = "ai"
)

// IsValid checks if the origin value is valid
func (o QueryOrigin) IsValid() bool {
	switch o {
	case OriginStatic, OriginAI:
		return true
	}
	return false
}

// SearchQuery is one search string derived from a TopicProfile.
// Queries are ephemeral and never persisted.
type SearchQuery struct {
	Text        string      `json:"text"`
	Origin      QueryOrigin `json:"origin"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// CandidateGroup is a single search hit. It lives only for the duration of
// one discovery pass; accepted candidates are folded into Group records.
type CandidateGroup struct {
	RemoteID     int64     `json:"remote_id"`
	Username     string    `json:"username,omitempty"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	MemberCount  int       `json:"member_count"`
	DiscoveredAt time.Time `json:"discovered_at"`
	Queries      []string  `json:"queries"` // provenance, first query that found it first
}

// Decision is the outcome of classifying one candidate
type Decision string

const (
	DecisionAccept     Decision = "accept"
	DecisionReject     Decision = "reject"
	DecisionBorderline Decision = "borderline"
)

// IsValid checks if the decision value is valid
func (d Decision) IsValid() bool {
	switch d {
	case DecisionAccept, DecisionReject, DecisionBorderline:
		return true
	}
	return false
}

// ClassificationResult is the classifier's verdict for one candidate.
// It is derived state: on ACCEPT it is folded into the persisted Group.
type ClassificationResult struct {
	CandidateID int64    `json:"candidate_id"`
	Confidence  float64  `json:"confidence"`
	MatchedRule string   `json:"matched_rule"` // "disqualified", "exact", "fuzzy", "none", "language-mismatch"
	MatchedTerm string   `json:"matched_term,omitempty"`
	Decision    Decision `json:"decision"`
}

// PassSummary reports the outcome of one discovery pass
type PassSummary struct {
	Topic          string    `json:"topic"`
	Round          int       `json:"round"`
	Queries        int       `json:"queries"`
	CandidatesSeen int       `json:"candidates_seen"`
	Accepted       int       `json:"accepted"`
	Borderline     int       `json:"borderline"`
	Rejected       int       `json:"rejected"`
	JoinsAttempted int       `json:"joins_attempted"`
	JoinsSucceeded int       `json:"joins_succeeded"`
	Degraded       bool      `json:"degraded"` // keyword expansion fell back to the static list
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}
