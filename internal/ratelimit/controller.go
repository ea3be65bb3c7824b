// Package ratelimit enforces per-category call budgets against the remote
// platform. Every remote call site must pass through Acquire; the controller
// blocks, it never rejects.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Category identifies an independently budgeted class of remote calls
type Category string

const (
	CategorySearch Category = "search"
	CategoryJoin   Category = "join"
	CategoryInfo   Category = "info-lookup"
)

// Limit is a rolling-window budget: at most Calls calls per Window
type Limit struct {
	Calls  int           `yaml:"calls"`
	Window time.Duration `yaml:"window"`
}

// Config holds per-category limits and the long-wait reporting threshold
type Config struct {
	Limits map[Category]Limit

	// LongWait is the threshold above which pending waits are reported to
	// the OnLongWait hook. Used for telemetry granularity only; it does not
	// change when calls are permitted.
	LongWait time.Duration
}

// DefaultConfig returns conservative limits for a single-account session
func DefaultConfig() Config {
	return Config{
		Limits: map[Category]Limit{
			CategorySearch: {Calls: 30, Window: time.Minute},
			CategoryJoin:   {Calls: 8, Window: time.Hour},
			CategoryInfo:   {Calls: 60, Window: time.Minute},
		},
		LongWait: 2 * time.Minute,
	}
}

type bucket struct {
	limiter     *rate.Limiter
	forcedUntil time.Time // set by ReportBackoff, only ever extended
}

// Controller tracks one budget per category and honors remote-mandated
// backoff. One instance per remote account, owned by the top-level runner
// and passed explicitly to every component that issues remote calls.
type Controller struct {
	mu      sync.Mutex
	cfg     Config
	buckets map[Category]*bucket

	onLongWait func(Category, time.Duration)

	// Injectable for deterministic tests.
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New creates a controller with the given per-category limits
func New(cfg Config) *Controller {
	if cfg.Limits == nil {
		cfg.Limits = DefaultConfig().Limits
	}
	return &Controller{
		cfg:     cfg,
		buckets: make(map[Category]*bucket),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// OnLongWait registers a hook invoked when a pending wait exceeds the
// configured long-wait threshold. The hook runs on the acquiring goroutine.
func (c *Controller) OnLongWait(fn func(Category, time.Duration)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLongWait = fn
}

// Acquire blocks until a call in the category is permitted, then reserves
// one slot. It returns an error only when ctx is canceled; budget exhaustion
// and forced backoff are waits, not failures.
func (c *Controller) Acquire(ctx context.Context, cat Category) error {
	for {
		c.mu.Lock()
		b := c.bucketLocked(cat)
		wait := b.forcedUntil.Sub(c.now())
		c.mu.Unlock()

		if wait > 0 {
			c.notify(cat, wait)
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
			// A longer backoff may have been reported while sleeping.
			continue
		}

		c.mu.Lock()
		now := c.now()
		res := b.limiter.ReserveN(now, 1)
		delay := res.DelayFrom(now)
		c.mu.Unlock()

		if delay > 0 {
			c.notify(cat, delay)
			if err := c.sleep(ctx, delay); err != nil {
				c.mu.Lock()
				res.CancelAt(c.now())
				c.mu.Unlock()
				return err
			}
		}

		// Backoff reported mid-wait bars the call even though the slot was
		// reserved; the budget is clamped on report, so loop and wait it out.
		c.mu.Lock()
		blocked := b.forcedUntil.After(c.now())
		c.mu.Unlock()
		if blocked {
			continue
		}
		return nil
	}
}

// ReportBackoff records a remote-mandated pause for the category. Reports
// are idempotent and monotonic: a shorter remaining wait never shortens one
// already recorded. Any remaining window budget is clamped to zero.
func (c *Controller) ReportBackoff(cat Category, d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.bucketLocked(cat)
	now := c.now()
	until := now.Add(d)
	if until.After(b.forcedUntil) {
		b.forcedUntil = until
	}
	if tokens := int(b.limiter.TokensAt(now)); tokens > 0 {
		b.limiter.ReserveN(now, tokens)
	}
}

// Wait reports how long an Acquire for the category would currently block.
// Zero means a slot is free now.
func (c *Controller) Wait(cat Category) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.bucketLocked(cat)
	now := c.now()
	forced := b.forcedUntil.Sub(now)

	res := b.limiter.ReserveN(now, 1)
	budget := res.DelayFrom(now)
	res.CancelAt(now)

	if forced > budget {
		return forced
	}
	return budget
}

func (c *Controller) bucketLocked(cat Category) *bucket {
	if b, ok := c.buckets[cat]; ok {
		return b
	}
	lim, ok := c.cfg.Limits[cat]
	if !ok || lim.Calls <= 0 || lim.Window <= 0 {
		// Unknown categories get the search budget rather than a panic;
		// the controller never raises.
		lim = DefaultConfig().Limits[CategorySearch]
	}
	b := &bucket{
		limiter: rate.NewLimiter(rate.Every(lim.Window/time.Duration(lim.Calls)), lim.Calls),
	}
	c.buckets[cat] = b
	return b
}

func (c *Controller) notify(cat Category, wait time.Duration) {
	c.mu.Lock()
	fn := c.onLongWait
	threshold := c.cfg.LongWait
	c.mu.Unlock()

	if fn != nil && threshold > 0 && wait >= threshold {
		fn(cat, wait)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
