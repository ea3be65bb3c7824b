package crawler

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telescout/internal/ratelimit"
	"telescout/internal/storage/sqlite"
	"telescout/internal/telegram"
	"telescout/internal/types"
)

func TestExtractHandles(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "tme link",
			text: "join us at https://t.me/ielts_tashkent today",
			want: []string{"ielts_tashkent"},
		},
		{
			name: "bare tme link",
			text: "t.me/ingliz_tili_uz",
			want: []string{"ingliz_tili_uz"},
		},
		{
			name: "mention",
			text: "ask @ielts_mentor for materials",
			want: []string{"ielts_mentor"},
		},
		{
			name: "mixed and deduplicated",
			text: "t.me/ielts_uz and @ielts_uz and @cefr_group",
			want: []string{"ielts_uz", "cefr_group"},
		},
		{
			name: "private invite links dropped",
			text: "https://t.me/+AbCdEf123 and https://t.me/joinchat/XyZ",
			want: nil,
		},
		{
			name: "case folded",
			text: "@IELTS_Tashkent",
			want: []string{"ielts_tashkent"},
		},
		{
			name: "too short mention ignored",
			text: "email me @uz",
			want: nil,
		},
		{
			name: "no handles",
			text: "speaking practice tomorrow at 6pm",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractHandles(tt.text))
		})
	}
}

// crawlClient scripts messages and handle resolutions.
type crawlClient struct {
	messages map[int64][]string
	resolved map[string]*telegram.SearchResult

	resolveCalls []string
}

func (c *crawlClient) Search(ctx context.Context, query string, limit int) ([]telegram.SearchResult, error) {
	return nil, nil
}

func (c *crawlClient) Join(ctx context.Context, remoteID int64) error { return nil }

func (c *crawlClient) CheckMembership(ctx context.Context, remoteID int64) (telegram.MembershipState, error) {
	return telegram.MembershipJoined, nil
}

func (c *crawlClient) RecentMessages(ctx context.Context, remoteID int64, limit int) ([]string, error) {
	return c.messages[remoteID], nil
}

func (c *crawlClient) Resolve(ctx context.Context, username string) (*telegram.SearchResult, error) {
	c.resolveCalls = append(c.resolveCalls, username)
	return c.resolved[username], nil
}

func newTestCrawler(t *testing.T, client telegram.Client) (*Crawler, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "crawler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	rates := ratelimit.New(ratelimit.Config{
		Limits: map[ratelimit.Category]ratelimit.Limit{
			ratelimit.CategoryInfo: {Calls: 1000, Window: time.Minute},
		},
		LongWait: time.Hour,
	})
	c, err := New(Config{
		Client: client,
		Store:  store,
		Rates:  rates,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return c, store
}

func seedJoined(t *testing.T, store *sqlite.Store, remoteID int64, username string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.UpsertGroup(ctx, &types.Group{
		RemoteID: remoteID, Username: username, Title: username,
		Confidence: 0.9, Topic: "ielts", JoinStatus: types.StatusDiscovered,
		FirstSeen: now, LastChecked: now,
	}))
	require.NoError(t, store.UpdateJoinStatus(ctx, remoteID, types.StatusJoined, now))
}

func TestCrawlDiscoversLinkedGroups(t *testing.T) {
	client := &crawlClient{
		messages: map[int64][]string{
			100: {
				"also check t.me/ielts_speaking_uz",
				"and @casino_heaven for fun",
			},
		},
		resolved: map[string]*telegram.SearchResult{
			"ielts_speaking_uz": {RemoteID: 300, Username: "ielts_speaking_uz", Title: "IELTS Speaking Uzbekistan"},
			"casino_heaven":     {RemoteID: 400, Username: "casino_heaven", Title: "Casino Heaven"},
		},
	}
	c, store := newTestCrawler(t, client)
	seedJoined(t, store, 100, "ielts_uz")

	profile := types.TopicProfile{
		Name:          "ielts",
		Keywords:      []string{"ielts"},
		BoostTerms:    []string{"ielts"},
		Disqualifiers: []string{"casino"},
		Threshold:     0.6,
	}
	summary, err := c.Crawl(context.Background(), profile)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.GroupsScanned)
	assert.Equal(t, 2, summary.HandlesFound)
	assert.Equal(t, 2, summary.NewGroups)
	assert.Equal(t, 1, summary.Accepted)
	assert.Equal(t, 1, summary.Rejected)

	ctx := context.Background()
	good, err := store.GetGroup(ctx, 300)
	require.NoError(t, err)
	require.NotNil(t, good)
	assert.Equal(t, types.StatusDiscovered, good.JoinStatus)

	bad, err := store.GetGroup(ctx, 400)
	require.NoError(t, err)
	require.NotNil(t, bad)
	assert.Equal(t, types.StatusSkipped, bad.JoinStatus)
}

func TestCrawlSkipsOwnHandleAndSeen(t *testing.T) {
	client := &crawlClient{
		messages: map[int64][]string{
			100: {"we are @ielts_uz, partner group @ielts_mentor"},
		},
		resolved: map[string]*telegram.SearchResult{
			"ielts_mentor": {RemoteID: 200, Username: "ielts_mentor", Title: "IELTS Mentor"},
		},
	}
	c, store := newTestCrawler(t, client)
	seedJoined(t, store, 100, "ielts_uz")
	seedJoined(t, store, 200, "ielts_mentor")

	profile := types.TopicProfile{
		Name: "ielts", Keywords: []string{"ielts"},
		BoostTerms: []string{"ielts"}, Threshold: 0.6,
	}
	summary, err := c.Crawl(context.Background(), profile)
	require.NoError(t, err)

	// ielts_mentor resolves but is already in the store; our own handle
	// is never resolved at all.
	assert.Equal(t, []string{"ielts_mentor"}, client.resolveCalls)
	assert.Equal(t, 0, summary.NewGroups)
}

func TestCrawlUnresolvableHandle(t *testing.T) {
	client := &crawlClient{
		messages: map[int64][]string{
			100: {"dead link t.me/gone_group_xyz"},
		},
		resolved: map[string]*telegram.SearchResult{},
	}
	c, store := newTestCrawler(t, client)
	seedJoined(t, store, 100, "ielts_uz")

	profile := types.TopicProfile{
		Name: "ielts", Keywords: []string{"ielts"},
		BoostTerms: []string{"ielts"}, Threshold: 0.6,
	}
	summary, err := c.Crawl(context.Background(), profile)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.HandlesFound)
	assert.Equal(t, 0, summary.Resolved)
}
