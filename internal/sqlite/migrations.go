package sqlite

// migration is one schema step with its target version.
type migration struct {
	version int
	sql     string
}

// migrations must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	provider   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS mailboxes (
	id         TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	UNIQUE (account_id, name)
);

CREATE TABLE IF NOT EXISTS persons (
	id           TEXT PRIMARY KEY,
	email        TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS threads (
	id           TEXT PRIMARY KEY,
	thread_key   TEXT NOT NULL UNIQUE,
	subject_norm TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS messages (
	seq                 INTEGER PRIMARY KEY AUTOINCREMENT,
	id                  TEXT NOT NULL UNIQUE,
	raw_sha256          TEXT NOT NULL UNIQUE,
	message_id_header   TEXT,
	content_fingerprint TEXT NOT NULL,
	subject             TEXT NOT NULL DEFAULT '',
	subject_norm        TEXT NOT NULL DEFAULT '',
	sent_at             DATETIME,
	internal_date       DATETIME,
	from_name           TEXT NOT NULL DEFAULT '',
	from_email          TEXT NOT NULL DEFAULT '',
	in_reply_to         TEXT NOT NULL DEFAULT '',
	references_ids      TEXT NOT NULL DEFAULT '[]',
	body_text           TEXT NOT NULL DEFAULT '',
	body_html           TEXT NOT NULL DEFAULT '',
	size_bytes          INTEGER NOT NULL DEFAULT 0,
	thread_id           TEXT REFERENCES threads(id) ON DELETE SET NULL,
	created_at          DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_message_id_header ON messages(message_id_header);
CREATE INDEX IF NOT EXISTS idx_messages_content_fingerprint ON messages(content_fingerprint);

CREATE TABLE IF NOT EXISTS mailbox_messages (
	id           TEXT PRIMARY KEY,
	mailbox_id   TEXT NOT NULL REFERENCES mailboxes(id) ON DELETE CASCADE,
	message_id   TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	uid          INTEGER NOT NULL,
	flags        TEXT NOT NULL DEFAULT '[]',
	modseq       INTEGER,
	last_seen_at DATETIME NOT NULL,
	UNIQUE (mailbox_id, uid)
);

CREATE INDEX IF NOT EXISTS idx_mailbox_messages_message_id ON mailbox_messages(message_id);

CREATE TABLE IF NOT EXISTS recipients (
	message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	person_id  TEXT NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
	role       TEXT NOT NULL CHECK (role IN ('to', 'cc', 'bcc')),
	PRIMARY KEY (message_id, person_id, role)
);

CREATE TABLE IF NOT EXISTS attachments (
	id           TEXT PRIMARY KEY,
	message_id   TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	filename     TEXT NOT NULL DEFAULT '',
	content_type TEXT NOT NULL DEFAULT '',
	size_bytes   INTEGER NOT NULL DEFAULT 0,
	part_id      TEXT NOT NULL DEFAULT '',
	sha256       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_attachments_message_id ON attachments(message_id);

CREATE TABLE IF NOT EXISTS import_checkpoints (
	account_id   TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	mailbox_name TEXT NOT NULL,
	last_uid     INTEGER NOT NULL DEFAULT 0,
	updated_at   DATETIME NOT NULL,
	PRIMARY KEY (account_id, mailbox_name)
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
