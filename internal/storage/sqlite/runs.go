package sqlite

import (
	"context"
	"fmt"
	"time"

	"telescout/internal/types"
)

// RecordSearchRun persists one executed search query
func (s *Store) RecordSearchRun(ctx context.Context, run *types.SearchRun) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO search_runs (
			pass_id, keyword, origin, started_at, finished_at,
			results_count, new_count, success, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.PassID, run.Keyword, run.Origin, run.StartedAt, run.FinishedAt,
		run.ResultsCount, run.NewCount, run.Success, run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record search run: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		run.ID = id
	}
	return nil
}

// RecentSearchRuns returns the most recent search runs, newest first
func (s *Store) RecentSearchRuns(ctx context.Context, limit int) ([]*types.SearchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pass_id, keyword, origin, started_at, finished_at,
		       results_count, new_count, success, error
		FROM search_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query search runs: %w", err)
	}
	defer rows.Close()

	var runs []*types.SearchRun
	for rows.Next() {
		var r types.SearchRun
		if err := rows.Scan(
			&r.ID, &r.PassID, &r.Keyword, &r.Origin, &r.StartedAt, &r.FinishedAt,
			&r.ResultsCount, &r.NewCount, &r.Success, &r.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan search run: %w", err)
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// TouchKeyword bumps the usage counter for a keyword
func (s *Store) TouchKeyword(ctx context.Context, keyword string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO keyword_usage (keyword, use_count, last_used_at)
		VALUES (?, 1, ?)
		ON CONFLICT(keyword) DO UPDATE SET
			use_count = use_count + 1,
			last_used_at = excluded.last_used_at
	`, keyword, time.Now())
	if err != nil {
		return fmt.Errorf("failed to touch keyword: %w", err)
	}
	return nil
}

// KeywordStats returns keyword usage counters, most used first
func (s *Store) KeywordStats(ctx context.Context, limit int) ([]*types.KeywordUsage, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT keyword, use_count, last_used_at
		FROM keyword_usage
		ORDER BY use_count DESC, keyword ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query keyword stats: %w", err)
	}
	defer rows.Close()

	var stats []*types.KeywordUsage
	for rows.Next() {
		var u types.KeywordUsage
		if err := rows.Scan(&u.Keyword, &u.UseCount, &u.LastUsedAt); err != nil {
			return nil, fmt.Errorf("failed to scan keyword usage: %w", err)
		}
		stats = append(stats, &u)
	}
	return stats, rows.Err()
}

// RecordEvent appends an audit-trail entry
func (s *Store) RecordEvent(ctx context.Context, event *types.Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO events (remote_id, event_type, detail, created_at)
		VALUES (?, ?, ?, ?)
	`, nullableID(event.RemoteID), event.EventType, event.Detail, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		event.ID = id
	}
	return nil
}

// RecentEvents returns the most recent audit-trail entries, newest first
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]*types.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(remote_id, 0), event_type, detail, created_at
		FROM events
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*types.Event
	for rows.Next() {
		var e types.Event
		if err := rows.Scan(&e.ID, &e.RemoteID, &e.EventType, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func nullableID(id int64) interface{} {
	if id == 0 {
		return nil
	}
	return id
}
