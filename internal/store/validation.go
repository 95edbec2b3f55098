package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mawsuah/tahqiq/internal/model"
)

// AppendValidation writes validation outcomes. Append-only per version;
// re-running validation adds rows, it never rewrites enrichment data.
func (s *Store) AppendValidation(ctx context.Context, outcomes []model.ValidationOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, o := range outcomes {
			issues, err := json.Marshal(o.Issues)
			if err != nil {
				return fmt.Errorf("marshal issues: %w", err)
			}
			query, args, err := s.sb.Insert("validation_results").
				Columns("item_id", "version", "category", "status", "issues",
					"quality_score", "temporal_confidence", "semantic_completeness", "pass_rate").
				Values(o.ItemID, o.Version, string(o.Category), string(o.Status), string(issues),
					o.QualityScore, o.TemporalConfidence, o.SemanticCompleteness, o.PassRate).
				ToSql()
			if err != nil {
				return fmt.Errorf("build insert: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("insert validation for item %d: %w", o.ItemID, err)
			}
		}
		return nil
	})
}

// ValidationCounts aggregates validation statuses per category for a
// version.
func (s *Store) ValidationCounts(ctx context.Context, version string) (map[model.ValidationCategory]map[model.ValidationStatus]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, status, COUNT(*) FROM validation_results
         WHERE version = ? GROUP BY category, status`, version)
	if err != nil {
		return nil, fmt.Errorf("query validation counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.ValidationCategory]map[model.ValidationStatus]int64)
	for rows.Next() {
		var category, status string
		var n int64
		if err := rows.Scan(&category, &status, &n); err != nil {
			return nil, err
		}
		c := model.ValidationCategory(category)
		if counts[c] == nil {
			counts[c] = make(map[model.ValidationStatus]int64)
		}
		counts[c][model.ValidationStatus(status)] = n
	}
	return counts, rows.Err()
}

// StageStats summarizes one stage's progress for a version.
type StageStats struct {
	Stage     model.Stage
	Completed int64
	Failed    int64
	CostUSD   float64
}

// StatsForVersion reports per-stage completion, failures and cost.
func (s *Store) StatsForVersion(ctx context.Context, version string) ([]StageStats, error) {
	var out []StageStats
	for _, stage := range model.Stages() {
		table, err := stageTable(stage)
		if err != nil {
			return nil, err
		}

		st := StageStats{Stage: stage}
		err = s.db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT COUNT(*), COALESCE(SUM(cost_usd), 0) FROM %s WHERE version = ?", table),
			version).Scan(&st.Completed, &st.CostUSD)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM item_failures WHERE stage = ? AND version = ?",
			string(stage), version).Scan(&st.Failed)
		if err != nil {
			return nil, fmt.Errorf("count failures: %w", err)
		}
		out = append(out, st)
	}
	return out, nil
}
