package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the controller deterministically: sleeps advance the
// clock instead of blocking.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	f.slept += d
	return nil
}

func newTestController(cfg Config) (*Controller, *fakeClock) {
	c := New(cfg)
	clk := newFakeClock()
	c.now = clk.Now
	c.sleep = clk.Sleep
	return c, clk
}

func TestAcquireHonorsBackoff(t *testing.T) {
	c, clk := newTestController(Config{
		Limits: map[Category]Limit{CategorySearch: {Calls: 100, Window: time.Minute}},
	})

	start := clk.Now()
	c.ReportBackoff(CategorySearch, 30*time.Second)

	err := c.Acquire(context.Background(), CategorySearch)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, clk.Now().Sub(start), 30*time.Second,
		"acquire returned before the mandated wait elapsed")
}

func TestBackoffIsMonotonic(t *testing.T) {
	c, _ := newTestController(Config{
		Limits: map[Category]Limit{CategoryJoin: {Calls: 100, Window: time.Minute}},
	})

	c.ReportBackoff(CategoryJoin, 30*time.Second)
	c.ReportBackoff(CategoryJoin, 10*time.Second) // shorter report must not shrink the wait

	assert.GreaterOrEqual(t, c.Wait(CategoryJoin), 29*time.Second)
}

func TestBackoffIsPerCategory(t *testing.T) {
	c, _ := newTestController(DefaultConfig())

	c.ReportBackoff(CategorySearch, time.Hour)

	assert.Greater(t, c.Wait(CategorySearch), time.Duration(0))
	assert.Equal(t, time.Duration(0), c.Wait(CategoryJoin))
}

func TestAcquireWaitsForBudget(t *testing.T) {
	c, clk := newTestController(Config{
		Limits: map[Category]Limit{CategorySearch: {Calls: 2, Window: time.Minute}},
	})
	ctx := context.Background()

	// Burst of two fits the window.
	require.NoError(t, c.Acquire(ctx, CategorySearch))
	require.NoError(t, c.Acquire(ctx, CategorySearch))
	assert.Equal(t, time.Duration(0), clk.slept)

	// Third call must wait for the window to roll.
	require.NoError(t, c.Acquire(ctx, CategorySearch))
	assert.Greater(t, clk.slept, time.Duration(0))
}

func TestBackoffClampsBudget(t *testing.T) {
	c, clk := newTestController(Config{
		Limits: map[Category]Limit{CategorySearch: {Calls: 2, Window: time.Minute}},
	})

	// Full budget available, then the remote mandates a pause: the pause is
	// honored and the untouched budget does not survive it.
	c.ReportBackoff(CategorySearch, 10*time.Second)

	require.NoError(t, c.Acquire(context.Background(), CategorySearch))
	assert.GreaterOrEqual(t, clk.slept, 10*time.Second)
	assert.Greater(t, clk.slept, 10*time.Second, "clamped budget should force a refill wait beyond the backoff")
}

func TestAcquireCancellation(t *testing.T) {
	c, _ := newTestController(DefaultConfig())
	c.ReportBackoff(CategorySearch, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Acquire(ctx, CategorySearch)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLongWaitHook(t *testing.T) {
	c, _ := newTestController(Config{
		Limits:   map[Category]Limit{CategorySearch: {Calls: 100, Window: time.Minute}},
		LongWait: time.Minute,
	})

	var gotCat Category
	var gotWait time.Duration
	c.OnLongWait(func(cat Category, wait time.Duration) {
		gotCat = cat
		gotWait = wait
	})

	// Short wait: hook stays quiet.
	c.ReportBackoff(CategorySearch, 5*time.Second)
	require.NoError(t, c.Acquire(context.Background(), CategorySearch))
	assert.Empty(t, gotCat)

	// Long wait: hook fires with the pending duration.
	c.ReportBackoff(CategorySearch, 10*time.Minute)
	require.NoError(t, c.Acquire(context.Background(), CategorySearch))
	assert.Equal(t, CategorySearch, gotCat)
	assert.GreaterOrEqual(t, gotWait, time.Minute)
}

func TestUnknownCategoryDoesNotPanic(t *testing.T) {
	c, _ := newTestController(Config{Limits: map[Category]Limit{}})
	assert.NotPanics(t, func() {
		_ = c.Acquire(context.Background(), Category("unconfigured"))
	})
}
