// Package storage defines the persistence boundary for discovery state.
package storage

import (
	"context"
	"time"

	"telescout/internal/types"
)

// GroupFilter narrows ListGroups results
type GroupFilter struct {
	Status types.JoinStatus // zero value matches all
	Topic  string
	Limit  int
}

// Storage is the persistence collaborator. Implementations must linearize
// writes for a single remote_id; expected conditions (duplicate keys,
// disallowed status downgrades) are absorbed, not raised.
type Storage interface {
	// Seen set and group records.
	HasSeen(ctx context.Context, remoteID int64) (bool, error)
	GetGroup(ctx context.Context, remoteID int64) (*types.Group, error)

	// UpsertGroup inserts a new group or refreshes an existing one. On
	// conflict the stored confidence only ever rises, last_checked is
	// refreshed, and join status is left untouched.
	UpsertGroup(ctx context.Context, group *types.Group) error

	// UpdateJoinStatus advances a group's join status. Transitions that
	// would move backward are silently ignored; the stored status wins.
	UpdateJoinStatus(ctx context.Context, remoteID int64, status types.JoinStatus, at time.Time) error

	ListGroups(ctx context.Context, filter GroupFilter) ([]*types.Group, error)
	CountGroupsByStatus(ctx context.Context) (map[types.JoinStatus]int, error)

	// Search run records.
	RecordSearchRun(ctx context.Context, run *types.SearchRun) error
	RecentSearchRuns(ctx context.Context, limit int) ([]*types.SearchRun, error)

	// Keyword usage counters.
	TouchKeyword(ctx context.Context, keyword string) error
	KeywordStats(ctx context.Context, limit int) ([]*types.KeywordUsage, error)

	// Audit trail.
	RecordEvent(ctx context.Context, event *types.Event) error
	RecentEvents(ctx context.Context, limit int) ([]*types.Event, error)

	Close() error
}
