// Package classify scores candidate groups against a topic profile.
package classify

import (
	"strings"

	"github.com/xrash/smetrics"

	"telescout/internal/types"
)

const (
	// DefaultFuzzyMargin is how far below the accept threshold a fuzzy score
	// may fall and still be reported BORDERLINE instead of REJECT.
	DefaultFuzzyMargin = 0.10

	// DefaultMissPenalty is subtracted from an exact-match confidence for
	// every boost term that did not match.
	DefaultMissPenalty = 0.05
)

// Rule names reported in ClassificationResult.MatchedRule.
const (
	RuleDisqualified = "disqualified"
	RuleExact        = "exact"
	RuleFuzzy        = "fuzzy"
	RuleNone         = "none"
)

// Classifier applies the profile's rules to a candidate's title and
// description. Zero value is not usable; call New.
type Classifier struct {
	fuzzyMargin float64
	missPenalty float64
}

// New creates a classifier with default margins
func New() *Classifier {
	return &Classifier{
		fuzzyMargin: DefaultFuzzyMargin,
		missPenalty: DefaultMissPenalty,
	}
}

// NewWithMargins creates a classifier with explicit borderline margin and
// per-miss penalty. Values outside [0,1] fall back to the defaults.
func NewWithMargins(fuzzyMargin, missPenalty float64) *Classifier {
	c := New()
	if fuzzyMargin >= 0 && fuzzyMargin <= 1 {
		c.fuzzyMargin = fuzzyMargin
	}
	if missPenalty >= 0 && missPenalty <= 1 {
		c.missPenalty = missPenalty
	}
	return c
}

// Score classifies one candidate. Rules apply in order, first match wins:
// disqualifiers, exact boost-term containment, fuzzy similarity. Confidence
// is always in [0,1].
func (c *Classifier) Score(cand types.CandidateGroup, profile types.TopicProfile) types.ClassificationResult {
	result := types.ClassificationResult{CandidateID: cand.RemoteID}
	text := Normalize(cand.Title + " " + cand.Description)

	// Rule 1: any disqualifier rejects outright, no matter what else matches.
	for _, d := range profile.Disqualifiers {
		nd := Normalize(d)
		if nd != "" && strings.Contains(text, nd) {
			result.Decision = types.DecisionReject
			result.MatchedRule = RuleDisqualified
			result.MatchedTerm = d
			return result
		}
	}

	// Rule 2: exact containment of a boost term.
	var firstMatch string
	matched := 0
	for _, term := range profile.BoostTerms {
		nt := Normalize(term)
		if nt == "" {
			continue
		}
		if strings.Contains(text, nt) {
			if firstMatch == "" {
				firstMatch = term
			}
			matched++
		}
	}
	if matched > 0 {
		confidence := 1.0 - c.missPenalty*float64(len(profile.BoostTerms)-matched)
		result.Confidence = clamp01(confidence)
		result.MatchedRule = RuleExact
		result.MatchedTerm = firstMatch
		if result.Confidence >= profile.Threshold {
			result.Decision = types.DecisionAccept
		} else {
			result.Decision = types.DecisionBorderline
		}
		return result
	}

	// Rule 3: fuzzy similarity. Best score wins; ties go to the term defined
	// earliest in the profile.
	best := 0.0
	bestTerm := ""
	for _, term := range profile.BoostTerms {
		nt := Normalize(term)
		if nt == "" {
			continue
		}
		if sim := similarity(nt, text); sim > best {
			best = sim
			bestTerm = term
		}
	}

	result.Confidence = clamp01(best)
	result.MatchedTerm = bestTerm
	switch {
	case result.Confidence >= profile.Threshold:
		result.Decision = types.DecisionAccept
		result.MatchedRule = RuleFuzzy
	case result.Confidence >= profile.Threshold-c.fuzzyMargin:
		result.Decision = types.DecisionBorderline
		result.MatchedRule = RuleFuzzy
	default:
		result.Decision = types.DecisionReject
		result.MatchedRule = RuleNone
	}
	return result
}

// similarity compares a normalized term against normalized text. Single
// tokens are matched against each token of the text; multi-word terms are
// also compared against the text as a whole.
func similarity(term, text string) float64 {
	best := smetrics.JaroWinkler(term, text, 0.7, 4)
	for _, token := range strings.Fields(text) {
		if s := smetrics.JaroWinkler(term, token, 0.7, 4); s > best {
			best = s
		}
	}
	return best
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
