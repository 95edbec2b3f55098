package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mawsuah/tahqiq/internal/anchor"
)

// ReplaceAnchors installs the anchor reference set. The set is replaced
// wholesale: anchors are fixed reference data, not enrichment output.
func (s *Store) ReplaceAnchors(ctx context.Context, set *anchor.Set) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM anchors"); err != nil {
			return fmt.Errorf("clear anchors: %w", err)
		}
		for _, id := range set.IDs() {
			a, _ := set.Get(id)
			query, args, err := s.sb.Insert("anchors").
				Columns("event_id", "parent_id", "depth", "era_category",
					"ah_start", "ah_end", "name", "location", "significance").
				Values(a.EventID, a.ParentID, a.Depth, a.EraCategory,
					a.AHStart, a.AHEnd, a.Name, a.Location, a.Significance).
				ToSql()
			if err != nil {
				return fmt.Errorf("build insert: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("insert anchor %s: %w", a.EventID, err)
			}
		}
		return nil
	})
}

// LoadAnchors reads the installed anchor set back out, re-validating the
// hierarchy on load.
func (s *Store) LoadAnchors(ctx context.Context) (*anchor.Set, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, parent_id, depth, era_category, ah_start, ah_end,
                name, location, significance
         FROM anchors ORDER BY event_id`)
	if err != nil {
		return nil, fmt.Errorf("query anchors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var anchors []anchor.Anchor
	for rows.Next() {
		var a anchor.Anchor
		if err := rows.Scan(&a.EventID, &a.ParentID, &a.Depth, &a.EraCategory,
			&a.AHStart, &a.AHEnd, &a.Name, &a.Location, &a.Significance); err != nil {
			return nil, err
		}
		anchors = append(anchors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(anchors) == 0 {
		return nil, fmt.Errorf("no anchor set installed: %w", ErrNotFound)
	}
	return anchor.NewSet(anchors)
}
