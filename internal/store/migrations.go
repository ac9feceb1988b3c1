package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create users",
		SQL: `
			CREATE TABLE users (
				id          TEXT PRIMARY KEY,
				first_name  TEXT NOT NULL DEFAULT '',
				last_name   TEXT NOT NULL DEFAULT '',
				profile_pic TEXT NOT NULL DEFAULT '',
				platform    TEXT NOT NULL,
				number      TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_users_platform ON users (platform);
			CREATE INDEX idx_users_number ON users (number);
		`,
	},
	{
		Version: 2,
		Name:    "create deliveries",
		SQL: `
			CREATE TABLE deliveries (
				id          TEXT PRIMARY KEY,
				recipient   TEXT NOT NULL,
				body        TEXT NOT NULL,
				routing     TEXT NOT NULL,
				status      TEXT NOT NULL,
				message_sid TEXT NOT NULL DEFAULT '',
				error       TEXT NOT NULL DEFAULT '',
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_deliveries_recipient ON deliveries (recipient);
			CREATE INDEX idx_deliveries_created ON deliveries (created_at);
		`,
	},
}
