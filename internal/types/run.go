package types

import "time"

// SearchRun is one executed search query, persisted for stats and debugging
type SearchRun struct {
	ID           int64     `json:"id"`
	PassID       string    `json:"pass_id"` // groups runs belonging to one pass
	Keyword      string    `json:"keyword"`
	Origin       QueryOrigin `json:"origin"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	ResultsCount int       `json:"results_count"`
	NewCount     int       `json:"new_count"` // groups not previously in the store
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
}

// KeywordUsage tracks how often a search keyword has been executed
type KeywordUsage struct {
	Keyword    string    `json:"keyword"`
	UseCount   int       `json:"use_count"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// Event types recorded in the audit trail.
const (
	EventGroupDiscovered = "group_discovered"
	EventAutoJoined      = "auto_joined"
	EventJoinFailed      = "join_failed"
	EventMembershipLost  = "membership_lost"
)

// Event is one audit-trail entry, optionally tied to a group
type Event struct {
	ID        int64     `json:"id"`
	RemoteID  int64     `json:"remote_id,omitempty"`
	EventType string    `json:"event_type"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
