package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mawsuah/tahqiq/internal/model"
)

// ErrNotFound is returned by point lookups with no matching row.
var ErrNotFound = errors.New("not found")

// IngestResult summarizes one ingestion call.
type IngestResult struct {
	Inserted   int
	Duplicates int
}

// InsertItems loads corpus items in one transaction. Items whose
// (group_id, item_in_group_id) key already exists are counted as
// duplicates and skipped; the corpus is immutable so an existing row is
// never rewritten.
func (s *Store) InsertItems(ctx context.Context, items []model.CorpusItem) (IngestResult, error) {
	var res IngestResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range items {
		markers, err := json.Marshal(item.Markers)
		if err != nil {
			return res, fmt.Errorf("marshal markers: %w", err)
		}

		query, args, err := s.sb.Insert("corpus_items").
			Columns("id", "group_id", "item_in_group_id", "chapter_id",
				"primary_text", "secondary_text", "narrator_chain",
				"group_name", "chapter_name", "source_file", "markers").
			Values(item.ID, item.GroupID, item.ItemInGroupID, item.ChapterID,
				item.PrimaryText, item.SecondaryText, item.NarratorChain,
				item.GroupName, item.ChapterName, item.SourceFile, string(markers)).
			Suffix("ON CONFLICT (group_id, item_in_group_id) DO NOTHING").
			ToSql()
		if err != nil {
			return res, fmt.Errorf("build insert: %w", err)
		}

		r, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return res, fmt.Errorf("insert item %d: %w", item.ID, err)
		}
		if n, _ := r.RowsAffected(); n == 0 {
			res.Duplicates++
		} else {
			res.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

// GetItem fetches one corpus item by id.
func (s *Store) GetItem(ctx context.Context, id int64) (model.CorpusItem, error) {
	query, args, err := s.itemSelect().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return model.CorpusItem{}, fmt.Errorf("build select: %w", err)
	}
	row := s.db.QueryRowContext(ctx, query, args...)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CorpusItem{}, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	return item, err
}

// ItemsByIDs fetches the given items in ascending id order.
func (s *Store) ItemsByIDs(ctx context.Context, ids []int64) ([]model.CorpusItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := s.itemSelect().Where(sq.Eq{"id": ids}).OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.CorpusItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CountItems returns the corpus size.
func (s *Store) CountItems(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM corpus_items").Scan(&n)
	return n, err
}

// UnprocessedItemIDs scans for item ids above afterID that have neither a
// committed output row for the stage and version nor a recorded
// permanent failure, ascending, at most limit.
func (s *Store) UnprocessedItemIDs(ctx context.Context, stage model.Stage, version string, afterID int64, limit int) ([]int64, error) {
	table, err := stageTable(stage)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
SELECT c.id FROM corpus_items c
WHERE c.id > ?
  AND NOT EXISTS (SELECT 1 FROM %s o WHERE o.item_id = c.id AND o.version = ?)
  AND NOT EXISTS (SELECT 1 FROM item_failures f
                  WHERE f.item_id = c.id AND f.stage = ? AND f.version = ?)
ORDER BY c.id ASC
LIMIT ?`, table)

	rows, err := s.db.QueryContext(ctx, query, afterID, version, string(stage), version, limit)
	if err != nil {
		return nil, fmt.Errorf("scan unprocessed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func stageTable(stage model.Stage) (string, error) {
	switch stage {
	case model.StageTemporal:
		return "temporal_assignments", nil
	case model.StageSemantic:
		return "semantic_tags", nil
	}
	return "", fmt.Errorf("unknown stage %q", stage)
}

func (s *Store) itemSelect() sq.SelectBuilder {
	return s.sb.Select("id", "group_id", "item_in_group_id", "chapter_id",
		"primary_text", "secondary_text", "narrator_chain",
		"group_name", "chapter_name", "source_file", "markers", "loaded_at").
		From("corpus_items")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (model.CorpusItem, error) {
	var item model.CorpusItem
	var markers string
	var loadedAt string
	err := row.Scan(&item.ID, &item.GroupID, &item.ItemInGroupID, &item.ChapterID,
		&item.PrimaryText, &item.SecondaryText, &item.NarratorChain,
		&item.GroupName, &item.ChapterName, &item.SourceFile, &markers, &loadedAt)
	if err != nil {
		return item, err
	}
	if err := json.Unmarshal([]byte(markers), &item.Markers); err != nil {
		return item, fmt.Errorf("decode markers for item %d: %w", item.ID, err)
	}
	if t, err := parseTimestamp(loadedAt); err == nil {
		item.LoadedAt = t
	}
	return item, nil
}

// parseTimestamp accepts the formats SQLite emits for CURRENT_TIMESTAMP
// and for Go-written time values.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
