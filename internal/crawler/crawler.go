// Package crawler mines joined groups for links and mentions pointing
// at other groups, resolving and classifying them as new candidates.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"telescout/internal/classify"
	"telescout/internal/ratelimit"
	"telescout/internal/storage"
	"telescout/internal/telegram"
	"telescout/internal/types"
)

var (
	tmeLinkRe   = regexp.MustCompile(`(?i)(?:https?://)?t\.me/([A-Za-z0-9_+]+)`)
	mentionRe   = regexp.MustCompile(`@([A-Za-z][A-Za-z0-9_]{4,31})`)
	validHandle = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{4,31}$`)
)

// ExtractHandles pulls public group handles out of message text. Both
// t.me links and @username mentions count. Private invite links
// (t.me/+hash, t.me/joinchat/...) carry no public handle and are
// dropped. Handles are lowercased and deduplicated in first-seen order.
func ExtractHandles(text string) []string {
	var out []string
	seen := make(map[string]bool)

	add := func(handle string) {
		handle = strings.ToLower(handle)
		if !validHandle.MatchString(handle) {
			return
		}
		if handle == "joinchat" {
			return
		}
		if !seen[handle] {
			seen[handle] = true
			out = append(out, handle)
		}
	}

	for _, m := range tmeLinkRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range mentionRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	return out
}

// Summary reports what one crawl over the joined groups produced.
type Summary struct {
	GroupsScanned int
	Messages      int
	HandlesFound  int
	Resolved      int
	NewGroups     int
	Accepted      int
	Rejected      int
}

// Config wires the crawler's collaborators.
type Config struct {
	Client     telegram.Client
	Store      storage.Storage
	Rates      *ratelimit.Controller
	Classifier *classify.Classifier
	Logger     *slog.Logger

	// MessageLimit is how many recent messages to scan per group
	MessageLimit int
}

// Crawler discovers new groups through links shared inside groups we
// already joined. It records classified candidates but never joins;
// joining stays with the discovery engine's rate-gated pass.
type Crawler struct {
	client     telegram.Client
	store      storage.Storage
	rates      *ratelimit.Controller
	classifier *classify.Classifier
	log        *slog.Logger
	msgLimit   int
}

// New creates a crawler. Client, Store, and Rates are required.
func New(cfg Config) (*Crawler, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Rates == nil {
		return nil, fmt.Errorf("rate controller is required")
	}
	if cfg.Classifier == nil {
		cfg.Classifier = classify.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MessageLimit <= 0 {
		cfg.MessageLimit = 100
	}
	return &Crawler{
		client:     cfg.Client,
		store:      cfg.Store,
		rates:      cfg.Rates,
		classifier: cfg.Classifier,
		log:        cfg.Logger,
		msgLimit:   cfg.MessageLimit,
	}, nil
}

// Crawl scans recent messages of every joined group for handles,
// resolves unseen ones, and records the classified result. Fatal
// transport errors abort the crawl.
func (c *Crawler) Crawl(ctx context.Context, profile types.TopicProfile) (*Summary, error) {
	summary := &Summary{}

	joined, err := c.store.ListGroups(ctx, storage.GroupFilter{Status: types.StatusJoined})
	if err != nil {
		return summary, err
	}

	handles := make(map[string]bool)
	var order []string
	for _, g := range joined {
		if err := c.rates.Acquire(ctx, ratelimit.CategoryInfo); err != nil {
			return summary, err
		}
		messages, err := c.client.RecentMessages(ctx, g.RemoteID, c.msgLimit)
		if err != nil {
			if telegram.IsFatal(err) || ctx.Err() != nil {
				return summary, err
			}
			c.log.Warn("failed to read messages", "remote_id", g.RemoteID, "error", err)
			continue
		}
		summary.GroupsScanned++
		summary.Messages += len(messages)
		for _, msg := range messages {
			for _, h := range ExtractHandles(msg) {
				// Don't chase our own handle back.
				if strings.EqualFold(h, g.Username) {
					continue
				}
				if !handles[h] {
					handles[h] = true
					order = append(order, h)
				}
			}
		}
	}
	summary.HandlesFound = len(order)

	for _, handle := range order {
		if err := c.resolveHandle(ctx, profile, handle, summary); err != nil {
			if telegram.IsFatal(err) || ctx.Err() != nil {
				return summary, err
			}
			c.log.Warn("failed to resolve handle", "handle", handle, "error", err)
		}
	}

	c.log.Info("crawl complete",
		"topic", profile.Name,
		"groups_scanned", summary.GroupsScanned,
		"handles", summary.HandlesFound,
		"new", summary.NewGroups)
	return summary, nil
}

func (c *Crawler) resolveHandle(ctx context.Context, profile types.TopicProfile, handle string, summary *Summary) error {
	if err := c.rates.Acquire(ctx, ratelimit.CategoryInfo); err != nil {
		return err
	}
	result, err := c.client.Resolve(ctx, handle)
	if err != nil {
		return err
	}
	if result == nil || result.Scam || result.Broadcast {
		return nil
	}
	summary.Resolved++

	seen, err := c.store.HasSeen(ctx, result.RemoteID)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}
	summary.NewGroups++

	cand := types.CandidateGroup{
		RemoteID:     result.RemoteID,
		Username:     result.Username,
		Title:        result.Title,
		Description:  result.Description,
		MemberCount:  result.MemberCount,
		DiscoveredAt: time.Now(),
		Queries:      []string{"crawl:" + handle},
	}
	verdict := c.classifier.Score(cand, profile)

	now := time.Now()
	group := &types.Group{
		RemoteID:    result.RemoteID,
		Username:    result.Username,
		Title:       result.Title,
		Description: result.Description,
		MemberCount: result.MemberCount,
		Confidence:  verdict.Confidence,
		MatchedRule: verdict.MatchedRule,
		Topic:       profile.Name,
		JoinStatus:  types.StatusDiscovered,
		FirstSeen:   now,
		LastChecked: now,
	}
	if verdict.Decision == types.DecisionReject {
		group.JoinStatus = types.StatusSkipped
		summary.Rejected++
	} else {
		summary.Accepted++
	}
	if err := c.store.UpsertGroup(ctx, group); err != nil {
		return err
	}
	event := &types.Event{
		RemoteID:  result.RemoteID,
		EventType: types.EventGroupDiscovered,
		Detail:    fmt.Sprintf(`{"source":"crawl","handle":%q,"decision":%q}`, handle, verdict.Decision),
	}
	if err := c.store.RecordEvent(ctx, event); err != nil {
		c.log.Warn("failed to record event", "error", err)
	}
	return nil
}
