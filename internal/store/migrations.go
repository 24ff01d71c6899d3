package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL DEFAULT '',
	message        TEXT NOT NULL,
	type           TEXT NOT NULL DEFAULT 'info',
	priority       TEXT NOT NULL DEFAULT 'medium',
	read           INTEGER NOT NULL DEFAULT 0 CHECK(read IN (0, 1)),
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	sender         TEXT NOT NULL DEFAULT '',
	related_type   TEXT NOT NULL DEFAULT '',
	related_id     TEXT NOT NULL DEFAULT '',
	related_name   TEXT NOT NULL DEFAULT '',
	client_only    INTEGER NOT NULL DEFAULT 0 CHECK(client_only IN (0, 1)),
	correlation_id TEXT NOT NULL DEFAULT '',
	position       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS preferences (
	key        TEXT PRIMARY KEY,
	enabled    INTEGER NOT NULL DEFAULT 1 CHECK(enabled IN (0, 1)),
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications(read);
CREATE INDEX IF NOT EXISTS idx_notifications_position ON notifications(position);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_notifications_correlation
	ON notifications(correlation_id);

CREATE INDEX IF NOT EXISTS idx_notifications_type ON notifications(type);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
