package sqlite

type migration struct {
	version int
	sql     string
}

// Versions must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS habits (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	type       TEXT NOT NULL DEFAULT '',
	cycle      TEXT NOT NULL DEFAULT 'daily',
	message    TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS completions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	habit_id   TEXT NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
	date       TEXT NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE (user_id, habit_id, date)
);

CREATE INDEX IF NOT EXISTS idx_habits_user ON habits(user_id);
CREATE INDEX IF NOT EXISTS idx_completions_user_date ON completions(user_id, date);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS accounts (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS api_keys (
	key_hash TEXT PRIMARY KEY,
	user_id  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_api_keys_user ON api_keys(user_id);
`,
	},
}
