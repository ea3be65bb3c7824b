package types

import (
	"fmt"
	"time"
)

// JoinStatus represents where a group sits in the join lifecycle
type JoinStatus string

const (
	StatusDiscovered  JoinStatus = "discovered"
	StatusJoinPending JoinStatus = "join_pending"
	StatusJoined      JoinStatus = "joined"
	StatusJoinFailed  JoinStatus = "join_failed"
	StatusSkipped     JoinStatus = "skipped"

	// Terminal states set by the membership monitor, never by discovery.
	StatusLeft    JoinStatus = "left"
	StatusRemoved JoinStatus = "removed"
)

// IsValid checks if the status value is valid
func (s JoinStatus) IsValid() bool {
	switch s {
	case StatusDiscovered, StatusJoinPending, StatusJoined, StatusJoinFailed,
		StatusSkipped, StatusLeft, StatusRemoved:
		return true
	}
	return false
}

// joinTransitions lists the allowed forward edges. A status may always
// re-record itself (idempotent writes). The only backward edge is
// join_failed -> join_pending, which arms a retry on a later pass.
var joinTransitions = map[JoinStatus][]JoinStatus{
	StatusDiscovered:  {StatusJoinPending, StatusJoined, StatusJoinFailed, StatusSkipped},
	StatusJoinPending: {StatusJoined, StatusJoinFailed},
	StatusJoinFailed:  {StatusJoinPending},
	StatusJoined:      {StatusLeft, StatusRemoved},
	StatusSkipped:     {},
	StatusLeft:        {},
	StatusRemoved:     {},
}

// CanTransitionTo reports whether moving from s to next preserves the
// monotonic join lifecycle.
func (s JoinStatus) CanTransitionTo(next JoinStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range joinTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Group is a persisted discovery result, keyed by the remote identifier.
type Group struct {
	RemoteID    int64      `json:"remote_id"`
	Username    string     `json:"username,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	MemberCount int        `json:"member_count"`
	Confidence  float64    `json:"confidence"` // confidence at acceptance time, only ever raised
	MatchedRule string     `json:"matched_rule,omitempty"`
	Topic       string     `json:"topic,omitempty"`
	JoinStatus  JoinStatus `json:"join_status"`
	FirstSeen   time.Time  `json:"first_seen"`
	LastChecked time.Time  `json:"last_checked"`
	JoinedAt    *time.Time `json:"joined_at,omitempty"`
	LeftAt      *time.Time `json:"left_at,omitempty"`
}

// Validate checks if the group has valid field values
func (g *Group) Validate() error {
	if g.RemoteID == 0 {
		return fmt.Errorf("remote_id is required")
	}
	if g.Confidence < 0 || g.Confidence > 1 {
		return fmt.Errorf("confidence must be in [0,1] (got %g)", g.Confidence)
	}
	if !g.JoinStatus.IsValid() {
		return fmt.Errorf("invalid join status: %s", g.JoinStatus)
	}
	return nil
}
