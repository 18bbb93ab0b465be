package storage

// progressSchema creates the single key/value collection of the progress
// database and stamps schema version 1.
const progressSchema = `
CREATE TABLE IF NOT EXISTS meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL  -- JSON encoded
);

PRAGMA user_version = 1;
`

// cacheSchema holds the asset cache generations.
const cacheSchema = `
-- One row per installed or in-use cache generation.
CREATE TABLE IF NOT EXISTS cache_generations (
    name TEXT PRIMARY KEY,
    created_at DATETIME NOT NULL
);

-- Stored responses, keyed by request identity within a generation.
CREATE TABLE IF NOT EXISTS cache_entries (
    generation TEXT NOT NULL,
    key TEXT NOT NULL,
    method TEXT NOT NULL,
    url TEXT NOT NULL,
    status INTEGER NOT NULL,
    header TEXT NOT NULL,
    body BLOB,
    stored_at DATETIME NOT NULL,

    PRIMARY KEY (generation, key)
);
`
