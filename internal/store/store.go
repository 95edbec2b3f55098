// Package store persists the corpus and every versioned enrichment
// entity in SQLite. Enrichment rows are append-only per (item, version);
// corrections are new versions, never in-place updates.
package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database. Safe for concurrent use; SQLite
// serializes writers, readers run concurrently under WAL.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// Open opens (creating if needed) the store at path. ":memory:" yields
// an ephemeral store for tests.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc's driver is not safe for concurrent writes over multiple
	// connections to the same in-process handle; one writer connection
	// with WAL keeps readers unblocked.
	db.SetMaxOpenConns(1)

	s := &Store{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS corpus_items (
    id               INTEGER PRIMARY KEY,
    group_id         INTEGER NOT NULL,
    item_in_group_id INTEGER NOT NULL,
    chapter_id       INTEGER NOT NULL DEFAULT 0,
    primary_text     TEXT NOT NULL,
    secondary_text   TEXT NOT NULL DEFAULT '',
    narrator_chain   TEXT NOT NULL DEFAULT '',
    group_name       TEXT NOT NULL DEFAULT '',
    chapter_name     TEXT NOT NULL DEFAULT '',
    source_file      TEXT NOT NULL DEFAULT '',
    markers          TEXT NOT NULL DEFAULT '[]',
    loaded_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (group_id, item_in_group_id)
);
CREATE INDEX IF NOT EXISTS idx_corpus_group ON corpus_items (group_id);

CREATE TABLE IF NOT EXISTS anchors (
    event_id     TEXT PRIMARY KEY,
    parent_id    TEXT NOT NULL DEFAULT '',
    depth        INTEGER NOT NULL,
    era_category TEXT NOT NULL DEFAULT '',
    ah_start     REAL,
    ah_end       REAL,
    name         TEXT NOT NULL,
    location     TEXT NOT NULL DEFAULT '',
    significance TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS temporal_assignments (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id         INTEGER NOT NULL REFERENCES corpus_items (id),
    version         TEXT NOT NULL,
    era_id          TEXT NOT NULL,
    sub_era_id      TEXT NOT NULL DEFAULT '',
    event_window_id TEXT NOT NULL DEFAULT '',
    earliest_ah     REAL,
    latest_ah       REAL,
    anchor_before   TEXT NOT NULL DEFAULT '[]',
    anchor_after    TEXT NOT NULL DEFAULT '[]',
    evidence_type   TEXT NOT NULL,
    confidence      REAL NOT NULL,
    reasoning       TEXT NOT NULL DEFAULT '',
    llm_model       TEXT NOT NULL DEFAULT '',
    cost_usd        REAL NOT NULL DEFAULT 0,
    duration_ms     INTEGER NOT NULL DEFAULT 0,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (item_id, version)
);
CREATE INDEX IF NOT EXISTS idx_temporal_version ON temporal_assignments (version);

CREATE TABLE IF NOT EXISTS semantic_tags (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id     INTEGER NOT NULL REFERENCES corpus_items (id),
    version     TEXT NOT NULL,
    speaker     TEXT NOT NULL DEFAULT '',
    addressee   TEXT NOT NULL DEFAULT '',
    verb_type   TEXT NOT NULL DEFAULT '',
    modality    TEXT NOT NULL DEFAULT '',
    categories  TEXT NOT NULL DEFAULT '[]',
    role        TEXT NOT NULL,
    axis_a      TEXT,
    axis_b      TEXT,
    vectors     TEXT NOT NULL DEFAULT '{}',
    llm_model   TEXT NOT NULL DEFAULT '',
    cost_usd    REAL NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (item_id, version)
);
CREATE INDEX IF NOT EXISTS idx_semantic_version ON semantic_tags (version);

CREATE TABLE IF NOT EXISTS cross_links (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    source_id     INTEGER NOT NULL REFERENCES corpus_items (id),
    target_id     INTEGER NOT NULL REFERENCES corpus_items (id),
    version       TEXT NOT NULL,
    link_type     TEXT NOT NULL,
    subtype       TEXT NOT NULL DEFAULT '',
    bidirectional INTEGER NOT NULL DEFAULT 0,
    confidence    REAL NOT NULL,
    justification TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (source_id, target_id, version, link_type)
);

CREATE TABLE IF NOT EXISTS validation_results (
    id                    INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id               INTEGER NOT NULL,
    version               TEXT NOT NULL,
    category              TEXT NOT NULL,
    status                TEXT NOT NULL,
    issues                TEXT NOT NULL DEFAULT '[]',
    quality_score         REAL NOT NULL DEFAULT 0,
    temporal_confidence   REAL NOT NULL DEFAULT 0,
    semantic_completeness REAL NOT NULL DEFAULT 0,
    pass_rate             REAL NOT NULL DEFAULT 0,
    validated_at          TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_validation_item ON validation_results (item_id, version);

CREATE TABLE IF NOT EXISTS item_failures (
    item_id    INTEGER NOT NULL,
    stage      TEXT NOT NULL,
    version    TEXT NOT NULL,
    kind       TEXT NOT NULL,
    reason     TEXT NOT NULL,
    attempts   INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (item_id, stage, version)
);

CREATE TABLE IF NOT EXISTS checkpoints (
    stage           TEXT NOT NULL,
    version         TEXT NOT NULL,
    last_item_id    INTEGER NOT NULL,
    total_processed INTEGER NOT NULL,
    cost_usd        REAL NOT NULL DEFAULT 0,
    tokens_used     INTEGER NOT NULL DEFAULT 0,
    updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (stage, version)
);
`

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
