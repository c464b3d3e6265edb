package sqlite

import "database/sql"

// schema is the relational form of the canonical membership model: one row
// per group, membership state (member/pending) as rows keyed by
// (group_id, chat_id). Runs on every startup; statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    account_id TEXT PRIMARY KEY,
    owner_chat_id INTEGER NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    username TEXT NOT NULL DEFAULT '',
    registered_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS groups (
    group_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    owner_chat_id INTEGER NOT NULL UNIQUE,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id TEXT NOT NULL,
    chat_id INTEGER NOT NULL,
    state TEXT NOT NULL CHECK(state IN ('member','pending')),
    changed_at TEXT NOT NULL,
    PRIMARY KEY (group_id, chat_id),
    FOREIGN KEY (group_id) REFERENCES groups(group_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS contacts (
    chat_id INTEGER PRIMARY KEY,
    username TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS invite_codes (
    code TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    created_by INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    used_by INTEGER NOT NULL DEFAULT 0,
    used_at TEXT NOT NULL DEFAULT '',
    max_uses INTEGER NOT NULL DEFAULT 1,
    use_count INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (group_id) REFERENCES groups(group_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_group_members_chat_id ON group_members(chat_id);
CREATE INDEX IF NOT EXISTS idx_contacts_username ON contacts(username);
CREATE INDEX IF NOT EXISTS idx_contacts_phone ON contacts(phone);
`

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
