// Package engine runs discovery passes: keyword expansion, rate-gated
// search, classification, and auto-join, with every decision persisted.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"telescout/internal/classify"
	"telescout/internal/keywords"
	"telescout/internal/ratelimit"
	"telescout/internal/storage"
	"telescout/internal/telegram"
	"telescout/internal/types"
)

// Config wires the engine's collaborators and knobs.
type Config struct {
	Client     telegram.Client
	Store      storage.Storage
	Rates      *ratelimit.Controller
	Source     keywords.Source
	Classifier *classify.Classifier
	Languages  *classify.LanguageDetector // optional, only used with RequireLanguageMatch
	Logger     *slog.Logger

	// SearchLimit is the maximum results requested per search query
	SearchLimit int

	// JoinBorderline also joins borderline-classified groups
	JoinBorderline bool

	// RequireLanguageMatch skips candidates whose detected language
	// confidently differs from the topic's language hint
	RequireLanguageMatch bool

	Retry RetryConfig
}

// Engine executes discovery passes for topic profiles.
type Engine struct {
	client     telegram.Client
	store      storage.Storage
	rates      *ratelimit.Controller
	source     keywords.Source
	classifier *classify.Classifier
	lang       *classify.LanguageDetector
	log        *slog.Logger

	searchLimit    int
	joinBorderline bool
	requireLang    bool
	retry          RetryConfig
}

// New creates an engine. Client, Store, Rates, and Source are required.
func New(cfg Config) (*Engine, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Rates == nil {
		return nil, fmt.Errorf("rate controller is required")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("keyword source is required")
	}
	if cfg.Classifier == nil {
		cfg.Classifier = classify.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 50
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialBackoff == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	return &Engine{
		client:         cfg.Client,
		store:          cfg.Store,
		rates:          cfg.Rates,
		source:         cfg.Source,
		classifier:     cfg.Classifier,
		lang:           cfg.Languages,
		log:            cfg.Logger,
		searchLimit:    cfg.SearchLimit,
		joinBorderline: cfg.JoinBorderline,
		requireLang:    cfg.RequireLanguageMatch,
		retry:          cfg.Retry,
	}, nil
}

// RunPass executes one full discovery pass for a topic profile.
//
// Queries run sequentially through the search rate gate. Results are
// deduplicated across queries (the first query to surface a group wins,
// later queries only add provenance). New candidates are classified and,
// when accepted, joined through the join rate gate. A fatal transport
// error aborts the pass; the partial summary is still returned.
func (e *Engine) RunPass(ctx context.Context, profile types.TopicProfile, round int) (*types.PassSummary, error) {
	passID := uuid.New().String()
	summary := &types.PassSummary{
		Topic:     profile.Name,
		Round:     round,
		StartedAt: time.Now(),
	}
	log := e.log.With("pass_id", passID, "topic", profile.Name, "round", round)
	log.Info("starting discovery pass")

	queries, err := e.source.Expand(ctx, profile, round)
	if err != nil {
		if !errors.Is(err, keywords.ErrDegraded) {
			return e.finish(summary), fmt.Errorf("keyword expansion failed: %w", err)
		}
		// Degraded expansion is logged once and the pass continues on
		// whatever queries came back.
		summary.Degraded = true
		log.Warn("keyword expansion degraded, continuing with static keywords", "error", err)
	}
	summary.Queries = len(queries)
	if len(queries) == 0 {
		log.Warn("no queries to run")
		return e.finish(summary), nil
	}

	candidates := make(map[int64]*types.CandidateGroup)
	var order []int64

	for _, q := range queries {
		if err := e.rates.Acquire(ctx, ratelimit.CategorySearch); err != nil {
			return e.finish(summary), err
		}
		if err := e.runQuery(ctx, log, passID, q, candidates, &order); err != nil {
			if telegram.IsFatal(err) || ctx.Err() != nil {
				return e.finish(summary), err
			}
			log.Warn("query failed, continuing pass", "keyword", q.Text, "error", err)
		}
	}
	summary.CandidatesSeen = len(candidates)

	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return e.finish(summary), err
		}
		if err := e.processCandidate(ctx, log, profile, candidates[id], summary); err != nil {
			if telegram.IsFatal(err) || ctx.Err() != nil {
				return e.finish(summary), err
			}
			log.Warn("candidate processing failed", "remote_id", id, "error", err)
		}
	}

	e.finish(summary)
	log.Info("pass complete",
		"queries", summary.Queries,
		"candidates", summary.CandidatesSeen,
		"accepted", summary.Accepted,
		"borderline", summary.Borderline,
		"rejected", summary.Rejected,
		"joins", summary.JoinsSucceeded,
		"degraded", summary.Degraded,
		"duration", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond))
	return summary, nil
}

// runQuery runs one search query and folds its results into the
// cross-query candidate set.
func (e *Engine) runQuery(ctx context.Context, log *slog.Logger, passID string, q types.SearchQuery, candidates map[int64]*types.CandidateGroup, order *[]int64) error {
	run := &types.SearchRun{
		PassID:    passID,
		Keyword:   q.Text,
		Origin:    q.Origin,
		StartedAt: time.Now(),
	}

	var results []telegram.SearchResult
	err := e.withRetry(ctx, ratelimit.CategorySearch, fmt.Sprintf("search %q", q.Text), func(ctx context.Context) error {
		var serr error
		results, serr = e.client.Search(ctx, q.Text, e.searchLimit)
		return serr
	})
	run.FinishedAt = time.Now()

	if err != nil {
		run.Error = err.Error()
		if rerr := e.store.RecordSearchRun(ctx, run); rerr != nil {
			log.Warn("failed to record search run", "error", rerr)
		}
		return err
	}
	run.Success = true
	run.ResultsCount = len(results)

	for _, r := range results {
		// Broadcast channels and flagged groups are never candidates.
		if r.Scam || r.Broadcast {
			continue
		}
		if existing, ok := candidates[r.RemoteID]; ok {
			existing.Queries = append(existing.Queries, q.Text)
			continue
		}
		run.NewCount++
		candidates[r.RemoteID] = &types.CandidateGroup{
			RemoteID:     r.RemoteID,
			Username:     r.Username,
			Title:        r.Title,
			Description:  r.Description,
			MemberCount:  r.MemberCount,
			DiscoveredAt: time.Now(),
			Queries:      []string{q.Text},
		}
		*order = append(*order, r.RemoteID)
	}

	if err := e.store.RecordSearchRun(ctx, run); err != nil {
		log.Warn("failed to record search run", "error", err)
	}
	if err := e.store.TouchKeyword(ctx, q.Text); err != nil {
		log.Warn("failed to record keyword usage", "error", err)
	}
	return nil
}

// processCandidate classifies a deduplicated candidate, persists the
// verdict, and joins when the decision allows it. Already-seen groups
// are skipped except for unfinished joins, which get one more attempt.
func (e *Engine) processCandidate(ctx context.Context, log *slog.Logger, profile types.TopicProfile, cand *types.CandidateGroup, summary *types.PassSummary) error {
	existing, err := e.store.GetGroup(ctx, cand.RemoteID)
	if err != nil {
		return err
	}
	if existing != nil {
		switch existing.JoinStatus {
		case types.StatusJoinFailed, types.StatusJoinPending:
			// A stored join_pending means a previous run stopped between
			// marking the join and recording its outcome; rediscovery
			// re-arms it the same way as a failed join.
		default:
			return nil
		}
		log.Info("retrying unfinished join",
			"remote_id", cand.RemoteID, "title", cand.Title, "status", existing.JoinStatus)
		if err := e.store.UpdateJoinStatus(ctx, cand.RemoteID, types.StatusJoinPending, time.Now()); err != nil {
			return err
		}
		return e.joinGroup(ctx, log, cand, summary)
	}

	verdict := e.classifier.Score(*cand, profile)
	switch verdict.Decision {
	case types.DecisionAccept:
		summary.Accepted++
	case types.DecisionBorderline:
		summary.Borderline++
	default:
		summary.Rejected++
	}

	now := time.Now()
	group := &types.Group{
		RemoteID:    cand.RemoteID,
		Username:    cand.Username,
		Title:       cand.Title,
		Description: cand.Description,
		MemberCount: cand.MemberCount,
		Confidence:  verdict.Confidence,
		MatchedRule: verdict.MatchedRule,
		Topic:       profile.Name,
		JoinStatus:  types.StatusDiscovered,
		FirstSeen:   now,
		LastChecked: now,
	}

	if verdict.Decision == types.DecisionReject {
		group.JoinStatus = types.StatusSkipped
		return e.store.UpsertGroup(ctx, group)
	}

	if e.requireLang && e.lang != nil && profile.Language != "" {
		matched, confident := e.lang.Matches(cand.Title+" "+cand.Description, profile.Language)
		if confident && !matched {
			group.JoinStatus = types.StatusSkipped
			group.MatchedRule = "language-mismatch"
			log.Info("skipping candidate, language mismatch",
				"remote_id", cand.RemoteID, "title", cand.Title, "want", profile.Language)
			return e.store.UpsertGroup(ctx, group)
		}
	}

	if err := e.store.UpsertGroup(ctx, group); err != nil {
		return err
	}
	e.recordEvent(ctx, log, cand.RemoteID, types.EventGroupDiscovered,
		fmt.Sprintf(`{"confidence":%.2f,"rule":%q,"decision":%q}`, verdict.Confidence, verdict.MatchedRule, verdict.Decision))

	if verdict.Decision == types.DecisionBorderline && !e.joinBorderline {
		return nil
	}
	if err := e.store.UpdateJoinStatus(ctx, cand.RemoteID, types.StatusJoinPending, time.Now()); err != nil {
		return err
	}
	return e.joinGroup(ctx, log, cand, summary)
}

// joinGroup attempts a rate-gated join and records the outcome.
func (e *Engine) joinGroup(ctx context.Context, log *slog.Logger, cand *types.CandidateGroup, summary *types.PassSummary) error {
	if err := e.rates.Acquire(ctx, ratelimit.CategoryJoin); err != nil {
		return err
	}
	summary.JoinsAttempted++

	// Once the join is in flight, a stop signal must not abort the remote
	// call or lose its outcome. Cancellation is honored at the next
	// candidate boundary instead.
	ctx = context.WithoutCancel(ctx)

	err := e.withRetry(ctx, ratelimit.CategoryJoin, fmt.Sprintf("join %d", cand.RemoteID), func(ctx context.Context) error {
		return e.client.Join(ctx, cand.RemoteID)
	})
	now := time.Now()

	if err != nil {
		if uerr := e.store.UpdateJoinStatus(ctx, cand.RemoteID, types.StatusJoinFailed, now); uerr != nil {
			return uerr
		}
		e.recordEvent(ctx, log, cand.RemoteID, types.EventJoinFailed, fmt.Sprintf(`{"error":%q}`, err.Error()))
		if telegram.IsFatal(err) {
			return err
		}
		log.Warn("join failed", "remote_id", cand.RemoteID, "title", cand.Title, "error", err)
		return nil
	}

	summary.JoinsSucceeded++
	if err := e.store.UpdateJoinStatus(ctx, cand.RemoteID, types.StatusJoined, now); err != nil {
		return err
	}
	log.Info("joined group", "remote_id", cand.RemoteID, "title", cand.Title)
	e.recordEvent(ctx, log, cand.RemoteID, types.EventAutoJoined, "")
	return nil
}

// recordEvent appends to the audit trail. Event failures never abort a
// pass, they are only logged.
func (e *Engine) recordEvent(ctx context.Context, log *slog.Logger, remoteID int64, eventType string, detail string) {
	event := &types.Event{RemoteID: remoteID, EventType: eventType, Detail: detail}
	if err := e.store.RecordEvent(ctx, event); err != nil {
		log.Warn("failed to record event", "event_type", eventType, "error", err)
	}
}

func (e *Engine) finish(summary *types.PassSummary) *types.PassSummary {
	summary.FinishedAt = time.Now()
	return summary
}
