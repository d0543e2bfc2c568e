package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Runs: one row per pipeline invocation against a source URL
CREATE TABLE IF NOT EXISTS runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT NOT NULL,
    title TEXT,
    language TEXT,
    pdf_path TEXT,
    page_count INTEGER DEFAULT 0,
    image_count INTEGER DEFAULT 0,
    failed_count INTEGER DEFAULT 0,
    status TEXT NOT NULL,         -- success, failed
    error_kind TEXT,              -- taxonomy kind for failed runs
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_url ON runs(url);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);

-- Run images: per-image outcome within a run
CREATE TABLE IF NOT EXISTS run_images (
    image_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    idx INTEGER NOT NULL,
    url TEXT NOT NULL,
    status TEXT NOT NULL,         -- success, failed
    error_kind TEXT,
    size_bytes INTEGER,
    content_hash TEXT,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
    UNIQUE(run_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_run_images_run ON run_images(run_id);
CREATE INDEX IF NOT EXISTS idx_run_images_status ON run_images(status);
`
