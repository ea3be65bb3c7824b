package sqlite

const schema = `
-- Discovered groups, keyed by the platform's identifier
CREATE TABLE IF NOT EXISTS groups (
    remote_id INTEGER PRIMARY KEY,
    username TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    member_count INTEGER NOT NULL DEFAULT 0,
    confidence REAL NOT NULL DEFAULT 0 CHECK(confidence >= 0 AND confidence <= 1),
    matched_rule TEXT NOT NULL DEFAULT '',
    topic TEXT NOT NULL DEFAULT '',
    join_status TEXT NOT NULL DEFAULT 'discovered',
    first_seen DATETIME NOT NULL,
    last_checked DATETIME NOT NULL,
    joined_at DATETIME,
    left_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_groups_join_status ON groups(join_status);
CREATE INDEX IF NOT EXISTS idx_groups_topic ON groups(topic);
CREATE INDEX IF NOT EXISTS idx_groups_username ON groups(username);

-- One row per executed search query
CREATE TABLE IF NOT EXISTS search_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    pass_id TEXT NOT NULL DEFAULT '',
    keyword TEXT NOT NULL,
    origin TEXT NOT NULL DEFAULT 'static',
    started_at DATETIME NOT NULL,
    finished_at DATETIME NOT NULL,
    results_count INTEGER NOT NULL DEFAULT 0,
    new_count INTEGER NOT NULL DEFAULT 0,
    success INTEGER NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_search_runs_keyword ON search_runs(keyword);
CREATE INDEX IF NOT EXISTS idx_search_runs_started_at ON search_runs(started_at);

-- Usage counters per keyword
CREATE TABLE IF NOT EXISTS keyword_usage (
    keyword TEXT PRIMARY KEY,
    use_count INTEGER NOT NULL DEFAULT 1,
    last_used_at DATETIME NOT NULL
);

-- Audit trail
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    remote_id INTEGER,
    event_type TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_events_remote_id ON events(remote_id);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
`
