package monitor

import (
	"context"
	"errors"
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

// monitorClient scripts membership states per group.
type monitorClient struct {
	states map[int64]telegram.MembershipState
	errs   map[int64]error
}

func (c *monitorClient) Search(ctx context.Context, query string, limit int) ([]telegram.SearchResult, error) {
	return nil, nil
}

func (c *monitorClient) Join(ctx context.Context, remoteID int64) error { return nil }

func (c *monitorClient) CheckMembership(ctx context.Context, remoteID int64) (telegram.MembershipState, error) {
	if err := c.errs[remoteID]; err != nil {
		return telegram.MembershipUnknown, err
	}
	return c.states[remoteID], nil
}

func (c *monitorClient) RecentMessages(ctx context.Context, remoteID int64, limit int) ([]string, error) {
	return nil, nil
}

func (c *monitorClient) Resolve(ctx context.Context, username string) (*telegram.SearchResult, error) {
	return nil, nil
}

func newTestMonitor(t *testing.T, client telegram.Client) (*Monitor, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "monitor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	rates := ratelimit.New(ratelimit.Config{
		Limits: map[ratelimit.Category]ratelimit.Limit{
			ratelimit.CategoryInfo: {Calls: 1000, Window: time.Minute},
		},
		LongWait: time.Hour,
	})
	m, err := New(Config{
		Client: client,
		Store:  store,
		Rates:  rates,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return m, store
}

func seedJoined(t *testing.T, store *sqlite.Store, remoteID int64) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.UpsertGroup(ctx, &types.Group{
		RemoteID: remoteID, Title: "IELTS Uzbekistan", Confidence: 0.9,
		Topic: "ielts", JoinStatus: types.StatusDiscovered,
		FirstSeen: now, LastChecked: now,
	}))
	require.NoError(t, store.UpdateJoinStatus(ctx, remoteID, types.StatusJoined, now))
}

func TestSweepReconcilesStates(t *testing.T) {
	client := &monitorClient{states: map[int64]telegram.MembershipState{
		100: telegram.MembershipJoined,
		200: telegram.MembershipLeft,
		300: telegram.MembershipRemoved,
	}}
	m, store := newTestMonitor(t, client)
	for _, id := range []int64{100, 200, 300} {
		seedJoined(t, store, id)
	}

	summary, err := m.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Checked)
	assert.Equal(t, 1, summary.StillJoined)
	assert.Equal(t, 1, summary.Left)
	assert.Equal(t, 1, summary.Removed)

	ctx := context.Background()
	still, _ := store.GetGroup(ctx, 100)
	assert.Equal(t, types.StatusJoined, still.JoinStatus)

	left, _ := store.GetGroup(ctx, 200)
	assert.Equal(t, types.StatusLeft, left.JoinStatus)
	assert.NotNil(t, left.LeftAt)

	removed, _ := store.GetGroup(ctx, 300)
	assert.Equal(t, types.StatusRemoved, removed.JoinStatus)

	events, err := store.RecentEvents(ctx, 10)
	require.NoError(t, err)
	var losses int
	for _, e := range events {
		if e.EventType == types.EventMembershipLost {
			losses++
		}
	}
	assert.Equal(t, 2, losses)
}

func TestSweepUnknownStateLeavesStatus(t *testing.T) {
	client := &monitorClient{states: map[int64]telegram.MembershipState{
		100: telegram.MembershipUnknown,
	}}
	m, store := newTestMonitor(t, client)
	seedJoined(t, store, 100)

	summary, err := m.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)

	g, _ := store.GetGroup(context.Background(), 100)
	assert.Equal(t, types.StatusJoined, g.JoinStatus)
}

func TestSweepCheckFailureContinues(t *testing.T) {
	client := &monitorClient{
		states: map[int64]telegram.MembershipState{
			200: telegram.MembershipJoined,
		},
		errs: map[int64]error{
			100: &telegram.RetryableError{Err: errors.New("timeout")},
		},
	}
	m, store := newTestMonitor(t, client)
	seedJoined(t, store, 100)
	seedJoined(t, store, 200)

	summary, err := m.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CheckFailed)
	assert.Equal(t, 1, summary.Checked)
}

func TestSweepFatalAborts(t *testing.T) {
	client := &monitorClient{errs: map[int64]error{
		100: &telegram.FatalError{Err: errors.New("session revoked")},
	}}
	m, store := newTestMonitor(t, client)
	seedJoined(t, store, 100)

	_, err := m.Sweep(context.Background())
	require.Error(t, err)
	assert.True(t, telegram.IsFatal(err))
}
