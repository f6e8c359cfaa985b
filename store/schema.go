package store

// Schema contains the complete DDL for the redveil tables.
const Schema = `
-- Hidden posts: one row per user-hidden post. Created on hide, deleted on
-- unhide or age sweep, never otherwise mutated.
CREATE TABLE IF NOT EXISTS hidden_posts (
    id        TEXT PRIMARY KEY,
    hidden_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_hidden_at ON hidden_posts(hidden_at);

-- Blocked channels: normalized lowercase names, edited only via the
-- management API, consumed read-only by the session.
CREATE TABLE IF NOT EXISTS blocked_channels (
    name     TEXT PRIMARY KEY,
    added_at INTEGER NOT NULL
);
`
