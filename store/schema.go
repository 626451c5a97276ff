package store

// schemaSQL is the DDL for graph persistence and the processed-text
// registry.
const schemaSQL = `
-- Knowledge graph nodes
CREATE TABLE IF NOT EXISTS nodes (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    type TEXT NOT NULL,
    description TEXT,
    terms JSON,
    tier INTEGER,
    confidence REAL NOT NULL DEFAULT 0,
    metadata JSON,
    position INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_nodes_name ON nodes(name COLLATE NOCASE);

-- Knowledge graph edges
CREATE TABLE IF NOT EXISTS edges (
    from_id TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
    to_id TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
    type TEXT NOT NULL,
    explanation TEXT,
    confidence REAL NOT NULL DEFAULT 0,
    metadata JSON,
    position INTEGER NOT NULL,
    PRIMARY KEY (from_id, to_id, type)
);

-- Processed-text registry
CREATE TABLE IF NOT EXISTS texts (
    text_id TEXT PRIMARY KEY,
    is_valid INTEGER NOT NULL,
    reason TEXT,
    density REAL NOT NULL DEFAULT 0,
    pattern_count INTEGER NOT NULL DEFAULT 0,
    chain_count INTEGER NOT NULL DEFAULT 0,
    nodes_added INTEGER NOT NULL DEFAULT 0,
    edges_added INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
