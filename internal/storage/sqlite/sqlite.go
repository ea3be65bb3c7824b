// Package sqlite implements the storage interface on a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"telescout/internal/storage"
	"telescout/internal/types"
)

// Store implements storage.Storage using SQLite
type Store struct {
	db *sql.DB
}

// Compile-time check that Store implements the storage interface
var _ storage.Storage = (*Store)(nil)

// New opens (or creates) the database at path
func New(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// WAL mode for better concurrency between the runner and CLI reads.
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// HasSeen reports whether the group has been recorded before
func (s *Store) HasSeen(ctx context.Context, remoteID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM groups WHERE remote_id = ?`, remoteID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check seen state: %w", err)
	}
	return true, nil
}

// GetGroup retrieves a group by remote identifier, nil if absent
func (s *Store) GetGroup(ctx context.Context, remoteID int64) (*types.Group, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT remote_id, username, title, description, member_count,
		       confidence, matched_rule, topic, join_status,
		       first_seen, last_checked, joined_at, left_at
		FROM groups
		WHERE remote_id = ?
	`, remoteID)

	group, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// UpsertGroup inserts a new group or refreshes an existing one. The whole
// merge runs as one statement so concurrent runners cannot interleave: the
// stored confidence only rises, last_checked always refreshes, and join
// status is never touched on conflict (UpdateJoinStatus owns that field).
func (s *Store) UpsertGroup(ctx context.Context, group *types.Group) error {
	if err := group.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	if group.FirstSeen.IsZero() {
		group.FirstSeen = now
	}
	if group.LastChecked.IsZero() {
		group.LastChecked = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO groups (
			remote_id, username, title, description, member_count,
			confidence, matched_rule, topic, join_status, first_seen, last_checked
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(remote_id) DO UPDATE SET
			username = excluded.username,
			title = excluded.title,
			description = excluded.description,
			member_count = excluded.member_count,
			matched_rule = CASE WHEN excluded.confidence > confidence
				THEN excluded.matched_rule ELSE matched_rule END,
			topic = CASE WHEN excluded.confidence > confidence
				THEN excluded.topic ELSE topic END,
			confidence = MAX(confidence, excluded.confidence),
			last_checked = excluded.last_checked
	`,
		group.RemoteID, group.Username, group.Title, group.Description,
		group.MemberCount, group.Confidence, group.MatchedRule, group.Topic,
		group.JoinStatus, group.FirstSeen, group.LastChecked,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert group: %w", err)
	}
	return nil
}

// UpdateJoinStatus advances a group's join status, holding a write lock
// across the read-check-write so a concurrent join outcome cannot be
// reverted by a stale discovery record. Disallowed transitions are no-ops.
func (s *Store) UpdateJoinStatus(ctx context.Context, remoteID int64, status types.JoinStatus, at time.Time) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid join status: %s", status)
	}

	// BEGIN IMMEDIATE takes the write lock up front, serializing the
	// check-then-update against other writers. database/sql's BeginTx
	// cannot request IMMEDIATE mode, so this runs on a pinned connection.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("failed to begin immediate transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	var current types.JoinStatus
	err = conn.QueryRowContext(ctx,
		`SELECT join_status FROM groups WHERE remote_id = ?`, remoteID).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("group %d not found", remoteID)
	}
	if err != nil {
		return fmt.Errorf("failed to read join status: %w", err)
	}

	if !current.CanTransitionTo(status) {
		// The stored status is further along; absorb the stale write.
		if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		committed = true
		return nil
	}

	query := `UPDATE groups SET join_status = ?, last_checked = ? WHERE remote_id = ?`
	args := []interface{}{status, at, remoteID}
	switch status {
	case types.StatusJoined:
		// A joined -> joined refresh keeps the original join timestamp.
		query = `UPDATE groups SET join_status = ?, last_checked = ?, joined_at = COALESCE(joined_at, ?) WHERE remote_id = ?`
		args = []interface{}{status, at, at, remoteID}
	case types.StatusLeft, types.StatusRemoved:
		query = `UPDATE groups SET join_status = ?, last_checked = ?, left_at = ? WHERE remote_id = ?`
		args = []interface{}{status, at, at, remoteID}
	}
	if _, err := conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update join status: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// ListGroups returns groups matching the filter, most recently seen first
func (s *Store) ListGroups(ctx context.Context, filter storage.GroupFilter) ([]*types.Group, error) {
	where := ""
	args := []interface{}{}
	if filter.Status != "" {
		where = "WHERE join_status = ?"
		args = append(args, filter.Status)
	}
	if filter.Topic != "" {
		if where == "" {
			where = "WHERE topic = ?"
		} else {
			where += " AND topic = ?"
		}
		args = append(args, filter.Topic)
	}
	limit := ""
	if filter.Limit > 0 {
		limit = fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT remote_id, username, title, description, member_count,
		       confidence, matched_rule, topic, join_status,
		       first_seen, last_checked, joined_at, left_at
		FROM groups
		%s
		ORDER BY last_checked DESC
		%s
	`, where, limit), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*types.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

// CountGroupsByStatus returns the number of stored groups per join status
func (s *Store) CountGroupsByStatus(ctx context.Context) (map[types.JoinStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT join_status, COUNT(*) FROM groups GROUP BY join_status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count groups: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.JoinStatus]int)
	for rows.Next() {
		var status types.JoinStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanGroup(row scanner) (*types.Group, error) {
	var g types.Group
	var joinedAt, leftAt sql.NullTime
	err := row.Scan(
		&g.RemoteID, &g.Username, &g.Title, &g.Description, &g.MemberCount,
		&g.Confidence, &g.MatchedRule, &g.Topic, &g.JoinStatus,
		&g.FirstSeen, &g.LastChecked, &joinedAt, &leftAt,
	)
	if err != nil {
		return nil, err
	}
	if joinedAt.Valid {
		g.JoinedAt = &joinedAt.Time
	}
	if leftAt.Valid {
		g.LeftAt = &leftAt.Time
	}
	return &g, nil
}
