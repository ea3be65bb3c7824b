package classify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"telescout/internal/types"
)

func ieltsProfile() types.TopicProfile {
	return types.TopicProfile{
		Name:          "ielts",
		Keywords:      []string{"ielts"},
		BoostTerms:    []string{"ielts"},
		Disqualifiers: []string{"scam"},
		Threshold:     0.7,
	}
}

func candidate(title string) types.CandidateGroup {
	return types.CandidateGroup{RemoteID: 1, Title: title}
}

func TestScoreExactMatch(t *testing.T) {
	c := New()
	result := c.Score(candidate("IELTS Uzbekistan 🇺🇿 Official"), ieltsProfile())

	assert.Equal(t, types.DecisionAccept, result.Decision)
	assert.Equal(t, RuleExact, result.MatchedRule)
	assert.Equal(t, "ielts", result.MatchedTerm)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestScoreDisqualifierWinsOverBoost(t *testing.T) {
	c := New()
	result := c.Score(candidate("Best scam group ever (ielts)"), ieltsProfile())

	assert.Equal(t, types.DecisionReject, result.Decision)
	assert.Equal(t, RuleDisqualified, result.MatchedRule)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestScoreDisqualifierSurvivesEmojiObfuscation(t *testing.T) {
	c := New()
	result := c.Score(candidate("sc🔥am ielts community"), ieltsProfile())

	assert.Equal(t, types.DecisionReject, result.Decision)
	assert.Equal(t, RuleDisqualified, result.MatchedRule)
}

func TestScoreExactPenaltyForUnmatchedTerms(t *testing.T) {
	profile := ieltsProfile()
	profile.BoostTerms = []string{"ielts", "speaking", "band 9"}

	c := New()
	result := c.Score(candidate("IELTS Tashkent"), profile)

	// One of three terms matched: 1.0 minus two misses worth of penalty.
	assert.InDelta(t, 1.0-2*DefaultMissPenalty, result.Confidence, 1e-9)
	assert.Equal(t, types.DecisionAccept, result.Decision)
	assert.Equal(t, "ielts", result.MatchedTerm)
}

func TestScoreExactBelowThresholdIsBorderline(t *testing.T) {
	profile := ieltsProfile()
	profile.Threshold = 0.95
	profile.BoostTerms = []string{"ielts", "speaking", "writing", "band 9", "mock exam"}

	c := New()
	result := c.Score(candidate("IELTS Tashkent"), profile)

	// 1.0 - 4*0.05 = 0.80 < 0.95.
	assert.Equal(t, types.DecisionBorderline, result.Decision)
	assert.Equal(t, RuleExact, result.MatchedRule)
}

func TestScoreFuzzyMatch(t *testing.T) {
	c := New()
	result := c.Score(candidate("IELT Uzbekistan"), ieltsProfile())

	// "ielt" is close enough to "ielts" for a fuzzy accept.
	assert.Equal(t, types.DecisionAccept, result.Decision)
	assert.Equal(t, RuleFuzzy, result.MatchedRule)
	assert.Greater(t, result.Confidence, 0.7)
	assert.LessOrEqual(t, result.Confidence, 1.0)
}

func TestScoreNoMatchRejects(t *testing.T) {
	c := New()
	result := c.Score(candidate("Kitchen remodeling price list"), ieltsProfile())

	assert.Equal(t, types.DecisionReject, result.Decision)
	assert.Equal(t, RuleNone, result.MatchedRule)
}

func TestScoreFuzzyTiePrefersEarliestTerm(t *testing.T) {
	// Both terms produce identical similarity against identical text; the
	// earliest-defined term must be the one reported.
	profile := ieltsProfile()
	profile.Threshold = 0.5
	profile.BoostTerms = []string{"kursu", "kursi"}

	c := New()
	result := c.Score(candidate("kurs"), profile)
	assert.Equal(t, RuleFuzzy, result.MatchedRule)
	assert.Equal(t, "kursu", result.MatchedTerm)
}

func TestScoreConfidenceAlwaysInRange(t *testing.T) {
	profiles := []types.TopicProfile{
		ieltsProfile(),
		{Name: "t", Keywords: []string{"x"}, BoostTerms: []string{"a", "b", "c", "d", "e", "f",
			"g", "h", "i", "j", "k", "l", "m", "n", "o", "p", "q", "r", "s", "u",
			"v", "w", "x", "y", "z", "aa", "bb", "cc"}, Threshold: 0.5},
	}
	titles := []string{
		"IELTS Uzbekistan", "a", "", "🇺🇿🇺🇿🇺🇿", "совершенно другое",
		"best scam group", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
	}

	c := New()
	for _, p := range profiles {
		for _, title := range titles {
			t.Run(fmt.Sprintf("%s/%s", p.Name, title), func(t *testing.T) {
				result := c.Score(candidate(title), p)
				assert.GreaterOrEqual(t, result.Confidence, 0.0)
				assert.LessOrEqual(t, result.Confidence, 1.0)
				assert.True(t, result.Decision.IsValid())
			})
		}
	}
}

func TestScoreUsesDescription(t *testing.T) {
	c := New()
	cand := types.CandidateGroup{
		RemoteID:    2,
		Title:       "Til o'rganamiz",
		Description: "IELTS speaking practice every day",
	}
	result := c.Score(cand, ieltsProfile())
	assert.Equal(t, types.DecisionAccept, result.Decision)
}
