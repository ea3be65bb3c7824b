// Package telegram defines the boundary to the remote platform's transport
// layer. The engine consumes this interface; the concrete session/auth
// implementation is owned elsewhere and injected at startup.
package telegram

import (
	"context"
)

// SearchResult is one raw hit from the remote search API
type SearchResult struct {
	RemoteID    int64
	Username    string
	Title       string
	Description string
	MemberCount int
	Scam        bool // flagged by the platform; filtered before classification
	Broadcast   bool // broadcast channel rather than a group
}

// MembershipState is the remote platform's view of our membership
type MembershipState string

const (
	MembershipJoined  MembershipState = "joined"
	MembershipLeft    MembershipState = "left"
	MembershipRemoved MembershipState = "removed" // kicked or banned
	MembershipUnknown MembershipState = "unknown"
)

// Client is the transport collaborator consumed by the discovery engine.
// All methods may return the typed errors in errors.go; callers classify
// failures with IsRetryable, AsFloodWait and IsFatal.
type Client interface {
	// Search runs a public group search for the query, returning at most
	// limit results in the order the platform ranked them.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)

	// Join attempts to join the group identified by remoteID.
	Join(ctx context.Context, remoteID int64) error

	// CheckMembership reports our current membership in the group.
	CheckMembership(ctx context.Context, remoteID int64) (MembershipState, error)

	// RecentMessages returns the text of up to limit recent messages from a
	// group we are a member of. Used by the link crawler.
	RecentMessages(ctx context.Context, remoteID int64, limit int) ([]string, error)

	// Resolve looks up a group by public handle.
	Resolve(ctx context.Context, username string) (*SearchResult, error)
}
