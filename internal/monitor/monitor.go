// Package monitor verifies that joined groups are still joined and
// records membership losses in the audit trail.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"telescout/internal/ratelimit"
	"telescout/internal/storage"
	"telescout/internal/telegram"
	"telescout/internal/types"
)

// Summary reports one verification sweep over the joined groups.
type Summary struct {
	Checked     int
	StillJoined int
	Left        int
	Removed     int
	CheckFailed int
}

// Config wires the monitor's collaborators.
type Config struct {
	Client telegram.Client
	Store  storage.Storage
	Rates  *ratelimit.Controller
	Logger *slog.Logger
}

// Monitor sweeps joined groups and reconciles stored status with the
// platform's view of our membership.
type Monitor struct {
	client telegram.Client
	store  storage.Storage
	rates  *ratelimit.Controller
	log    *slog.Logger
}

// New creates a monitor. Client, Store, and Rates are required.
func New(cfg Config) (*Monitor, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Rates == nil {
		return nil, fmt.Errorf("rate controller is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Monitor{
		client: cfg.Client,
		store:  cfg.Store,
		rates:  cfg.Rates,
		log:    cfg.Logger,
	}, nil
}

// Sweep checks every joined group once. Individual check failures are
// logged and counted; only fatal transport errors abort the sweep.
func (m *Monitor) Sweep(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	joined, err := m.store.ListGroups(ctx, storage.GroupFilter{Status: types.StatusJoined})
	if err != nil {
		return summary, err
	}

	for _, g := range joined {
		if err := m.rates.Acquire(ctx, ratelimit.CategoryInfo); err != nil {
			return summary, err
		}
		state, err := m.client.CheckMembership(ctx, g.RemoteID)
		if err != nil {
			if telegram.IsFatal(err) || ctx.Err() != nil {
				return summary, err
			}
			summary.CheckFailed++
			m.log.Warn("membership check failed", "remote_id", g.RemoteID, "error", err)
			continue
		}
		summary.Checked++
		if err := m.reconcile(ctx, g, state, summary); err != nil {
			return summary, err
		}
	}

	m.log.Info("membership sweep complete",
		"checked", summary.Checked,
		"still_joined", summary.StillJoined,
		"left", summary.Left,
		"removed", summary.Removed,
		"failed", summary.CheckFailed)
	return summary, nil
}

func (m *Monitor) reconcile(ctx context.Context, g *types.Group, state telegram.MembershipState, summary *Summary) error {
	now := time.Now()
	switch state {
	case telegram.MembershipJoined:
		summary.StillJoined++
		// Same-status write refreshes last_checked.
		return m.store.UpdateJoinStatus(ctx, g.RemoteID, types.StatusJoined, now)

	case telegram.MembershipLeft:
		summary.Left++
		if err := m.store.UpdateJoinStatus(ctx, g.RemoteID, types.StatusLeft, now); err != nil {
			return err
		}
		m.recordLoss(ctx, g, types.StatusLeft)
		return nil

	case telegram.MembershipRemoved:
		summary.Removed++
		if err := m.store.UpdateJoinStatus(ctx, g.RemoteID, types.StatusRemoved, now); err != nil {
			return err
		}
		m.recordLoss(ctx, g, types.StatusRemoved)
		return nil

	default:
		// Unknown state leaves the stored status alone.
		m.log.Warn("membership state unknown", "remote_id", g.RemoteID)
		return nil
	}
}

func (m *Monitor) recordLoss(ctx context.Context, g *types.Group, status types.JoinStatus) {
	m.log.Warn("membership lost", "remote_id", g.RemoteID, "title", g.Title, "status", status)
	event := &types.Event{
		RemoteID:  g.RemoteID,
		EventType: types.EventMembershipLost,
		Detail:    fmt.Sprintf(`{"status":%q}`, status),
	}
	if err := m.store.RecordEvent(ctx, event); err != nil {
		m.log.Warn("failed to record event", "error", err)
	}
}
