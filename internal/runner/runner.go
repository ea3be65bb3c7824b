// Package runner drives the discovery engine continuously: passes over
// every configured topic, separated by interruptible delays.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"telescout/internal/ratelimit"
	"telescout/internal/telegram"
	"telescout/internal/types"
)

// State is the runner's lifecycle state
type State string

const (
	StateIdle       State = "IDLE"        // between rounds, waiting out the interval
	StateRunning    State = "RUNNING"     // a pass is executing
	StateBackingOff State = "BACKING_OFF" // waiting out a long rate-limit pause
	StateStopping   State = "STOPPING"    // stop requested, in-flight work finishing
	StateStopped    State = "STOPPED"
)

// PassRunner executes one discovery pass. Satisfied by engine.Engine.
type PassRunner interface {
	RunPass(ctx context.Context, profile types.TopicProfile, round int) (*types.PassSummary, error)
}

// Config holds the runner's collaborators and loop settings.
type Config struct {
	Engine    PassRunner
	Topics    []types.TopicProfile
	Interval  time.Duration // delay between rounds
	MaxRounds int           // 0 runs until stopped
	Logger    *slog.Logger

	// OnPass, if set, receives every completed pass summary, including
	// the partial summary of an aborted pass.
	OnPass func(*types.PassSummary)
}

// Runner cycles through topics round after round until stopped or a
// fatal error surfaces.
type Runner struct {
	engine    PassRunner
	topics    []types.TopicProfile
	interval  time.Duration
	maxRounds int
	log       *slog.Logger
	onPass    func(*types.PassSummary)

	mu           sync.Mutex
	state        State
	round        int
	backoffUntil time.Time

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// New creates a runner. Engine and at least one topic are required.
func New(cfg Config) (*Runner, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if len(cfg.Topics) == 0 {
		return nil, fmt.Errorf("at least one topic is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{
		engine:    cfg.Engine,
		topics:    cfg.Topics,
		interval:  cfg.Interval,
		maxRounds: cfg.MaxRounds,
		log:       cfg.Logger,
		onPass:    cfg.OnPass,
		state:     StateIdle,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// Run executes rounds until the context is canceled, Stop is called,
// MaxRounds is reached, or a pass fails fatally. Cancellation and Stop
// are graceful and return nil; a fatal transport error is returned.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-r.stopCh:
			cancel()
		case <-ctx.Done():
			// External cancellation (SIGINT) enters STOPPING the same way
			// Stop does; the in-flight pass still finishes winding down.
			r.setState(StateStopping)
		}
	}()

	defer close(r.doneCh)
	defer r.setState(StateStopped)

	for round := 1; r.maxRounds == 0 || round <= r.maxRounds; round++ {
		r.mu.Lock()
		r.round = round
		r.mu.Unlock()

		for _, topic := range r.topics {
			if ctx.Err() != nil {
				r.setState(StateStopping)
				return nil
			}
			r.setState(StateRunning)
			summary, err := r.engine.RunPass(ctx, topic, round)
			if r.onPass != nil && summary != nil {
				r.onPass(summary)
			}
			if err != nil {
				if ctx.Err() != nil {
					r.setState(StateStopping)
					r.log.Info("stopped during pass", "topic", topic.Name, "round", round)
					return nil
				}
				if telegram.IsFatal(err) {
					r.log.Error("fatal error, shutting down", "topic", topic.Name, "error", err)
					return err
				}
				// Non-fatal pass failures do not stop the loop.
				r.log.Warn("pass failed", "topic", topic.Name, "round", round, "error", err)
			}
		}

		if r.maxRounds > 0 && round == r.maxRounds {
			r.log.Info("round limit reached", "rounds", round)
			return nil
		}

		r.setState(StateIdle)
		r.log.Info("round complete, sleeping", "round", round, "interval", r.interval)
		select {
		case <-time.After(r.interval):
		case <-ctx.Done():
			r.setState(StateStopping)
			return nil
		}
	}
	return nil
}

// Stop requests a graceful shutdown and waits for Run to return. Safe
// to call more than once. Must not be called before Run has started.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.setState(StateStopping)
		close(r.stopCh)
	})
	<-r.doneCh
}

// NoteBackoff flags the runner as backing off for the given duration.
// Wire it to the rate controller's long-wait hook.
func (r *Runner) NoteBackoff(cat ratelimit.Category, wait time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until := time.Now().Add(wait)
	if until.After(r.backoffUntil) {
		r.backoffUntil = until
	}
	r.log.Warn("long rate-limit wait", "category", cat, "wait", wait.Round(time.Second))
}

// State returns the current lifecycle state. A running pass that is
// waiting out a long rate-limit pause reports BACKING_OFF.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateRunning && time.Now().Before(r.backoffUntil) {
		return StateBackingOff
	}
	return r.state
}

// Round returns the current round number, starting at 1.
func (r *Runner) Round() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.round
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Stop wins over concurrent state changes from the run loop.
	if r.state == StateStopping && s != StateStopped {
		return
	}
	if r.state == StateStopped {
		return
	}
	r.state = s
}
