package repository

// schema 本地缓存表结构，所有表按账号分区并随账号级联删除
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id                          BIGINT PRIMARY KEY,
	domain                      TEXT NOT NULL,
	username                    TEXT NOT NULL,
	access_token                TEXT NOT NULL,
	always_show_sensitive_media BOOLEAN NOT NULL DEFAULT FALSE,
	always_open_spoiler         BOOLEAN NOT NULL DEFAULT FALSE,
	created_at                  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS conversations (
	account_id              BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	id                      TEXT NOT NULL,
	sort_order              INTEGER NOT NULL,
	accounts                JSONB NOT NULL,
	unread                  BOOLEAN NOT NULL,
	last_status             JSONB NOT NULL,
	is_conversation_starter BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (account_id, id)
);

CREATE INDEX IF NOT EXISTS idx_conversations_sort_order ON conversations (account_id, sort_order);

CREATE TABLE IF NOT EXISTS status_view_data (
	account_id        BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	server_id         TEXT NOT NULL,
	expanded          BOOLEAN,
	content_showing   BOOLEAN,
	content_collapsed BOOLEAN,
	translation_state TEXT,
	PRIMARY KEY (account_id, server_id)
);
`
