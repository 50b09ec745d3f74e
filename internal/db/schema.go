package db

// SchemaVersion is the current database schema version
const SchemaVersion = 8

// baseSchema is version 1. Everything after it lives in Migrations.
const baseSchema = `
CREATE TABLE IF NOT EXISTS project_meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    description TEXT NOT NULL,
    applied_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TEXT NOT NULL,
    ended_at TEXT,
    summary TEXT,
    status TEXT NOT NULL DEFAULT 'active'
);

CREATE TABLE IF NOT EXISTS decisions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER REFERENCES sessions(id),
    topic TEXT NOT NULL,
    decision TEXT NOT NULL,
    rationale TEXT,
    status TEXT NOT NULL DEFAULT 'active',
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER REFERENCES sessions(id),
    description TEXT NOT NULL,
    priority TEXT NOT NULL DEFAULT 'normal',
    status TEXT NOT NULL DEFAULT 'pending',
    notes TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    completed_at TEXT
);

CREATE TABLE IF NOT EXISTS blockers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER REFERENCES sessions(id),
    description TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'active',
    resolution TEXT,
    created_at TEXT NOT NULL,
    resolved_at TEXT
);

CREATE TABLE IF NOT EXISTS context_notes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER REFERENCES sessions(id),
    category TEXT NOT NULL DEFAULT 'note',
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER REFERENCES sessions(id),
    question TEXT NOT NULL,
    context TEXT,
    answer TEXT,
    answered INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    answered_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
CREATE INDEX IF NOT EXISTS idx_decisions_created ON decisions(created_at);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_blockers_status ON blockers(status);
CREATE INDEX IF NOT EXISTS idx_notes_created ON context_notes(created_at);
CREATE INDEX IF NOT EXISTS idx_questions_answered ON questions(answered);
`

// Risk classifies what a migration can do to existing data
type Risk string

const (
	RiskSafe        Risk = "safe"
	RiskDestructive Risk = "destructive"
)

// Migration defines a database migration. Verify is a query returning a
// single integer, non-zero once the change is already present.
type Migration struct {
	Version     int
	Description string
	Risk        Risk
	SQL         string
	Verify      string
}

// Migrations is the list of all database migrations in order
var Migrations = []Migration{
	// Version 1 is the base schema - no migration needed
	{
		Version:     2,
		Description: "Add activity_log table",
		Risk:        RiskSafe,
		SQL: `
CREATE TABLE IF NOT EXISTS activity_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER NOT NULL REFERENCES sessions(id),
    action_type TEXT NOT NULL,
    action_id INTEGER NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_session ON activity_log(session_id);
CREATE INDEX IF NOT EXISTS idx_activity_timestamp ON activity_log(timestamp);
`,
		Verify: `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'activity_log'`,
	},
	{
		Version:     3,
		Description: "Mirror git commits",
		Risk:        RiskSafe,
		SQL: `
CREATE TABLE IF NOT EXISTS git_commits (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    hash TEXT NOT NULL UNIQUE,
    short_hash TEXT NOT NULL,
    author TEXT NOT NULL DEFAULT '',
    message TEXT NOT NULL DEFAULT '',
    committed_at TEXT NOT NULL,
    files_changed INTEGER NOT NULL DEFAULT 0,
    insertions INTEGER NOT NULL DEFAULT 0,
    deletions INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_git_commits_committed ON git_commits(committed_at);
`,
		Verify: `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'git_commits'`,
	},
	{
		Version:     4,
		Description: "Add structured session summaries",
		Risk:        RiskSafe,
		SQL:         `ALTER TABLE sessions ADD COLUMN structured_summary TEXT;`,
		Verify:      `SELECT COUNT(*) FROM pragma_table_info('sessions') WHERE name = 'structured_summary'`,
	},
	{
		Version:     5,
		Description: "Track session close reason and last activity",
		Risk:        RiskSafe,
		SQL: `
ALTER TABLE sessions ADD COLUMN closed_reason TEXT;
ALTER TABLE sessions ADD COLUMN last_activity_at TEXT;
UPDATE sessions SET last_activity_at = COALESCE(ended_at, started_at) WHERE last_activity_at IS NULL;
`,
		Verify: `SELECT COUNT(*) = 2 FROM pragma_table_info('sessions') WHERE name IN ('closed_reason', 'last_activity_at')`,
	},
	{
		Version:     6,
		Description: "Add decision supersede pointer and single active session index",
		Risk:        RiskSafe,
		SQL: `
ALTER TABLE decisions ADD COLUMN supersedes INTEGER REFERENCES decisions(id);
CREATE INDEX IF NOT EXISTS idx_decisions_supersedes ON decisions(supersedes);
CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_active ON sessions(status) WHERE status = 'active';
`,
		Verify: `SELECT (SELECT COUNT(*) FROM pragma_table_info('decisions') WHERE name = 'supersedes')
     * (SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_sessions_one_active')`,
	},
	{
		Version:     7,
		Description: "Enforce task status and priority values",
		Risk:        RiskDestructive,
		SQL: `
-- SQLite can't add CHECK constraints in place, so the table is rebuilt
CREATE TABLE tasks_new (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER REFERENCES sessions(id),
    description TEXT NOT NULL,
    priority TEXT NOT NULL DEFAULT 'normal'
        CHECK (priority IN ('urgent', 'high', 'normal', 'low')),
    status TEXT NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending', 'in_progress', 'completed', 'cancelled', 'blocked')),
    notes TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    completed_at TEXT
);
INSERT INTO tasks_new (id, session_id, description, priority, status, notes, created_at, updated_at, completed_at)
    SELECT id, session_id, description, priority, status, notes, created_at, updated_at, completed_at FROM tasks;
DROP TABLE tasks;
ALTER TABLE tasks_new RENAME TO tasks;
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at);
`,
		Verify: `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'tasks' AND sql LIKE '%CHECK (status IN%'`,
	},
	{
		Version:     8,
		Description: "Track when a session last saw the full project context",
		Risk:        RiskSafe,
		SQL:         `ALTER TABLE sessions ADD COLUMN context_shown_at TEXT;`,
		Verify:      `SELECT COUNT(*) FROM pragma_table_info('sessions') WHERE name = 'context_shown_at'`,
	},
}
