package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mawsuah/tahqiq/internal/model"
)

// LoadCheckpoint returns the most recent durable marker for a stage and
// version, or the zero resume point when none exists.
func (s *Store) LoadCheckpoint(ctx context.Context, stage model.Stage, version string) (model.CheckpointMarker, error) {
	marker := model.CheckpointMarker{Stage: stage, Version: version}

	query, args, err := s.sb.Select("last_item_id", "total_processed", "cost_usd", "tokens_used", "updated_at").
		From("checkpoints").
		Where(sq.Eq{"stage": string(stage), "version": version}).
		ToSql()
	if err != nil {
		return marker, fmt.Errorf("build select: %w", err)
	}

	var updatedAt string
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&marker.LastItemID, &marker.TotalProcessed, &marker.CostUSD, &marker.TokensUsed, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return marker, nil
	}
	if err != nil {
		return marker, fmt.Errorf("load checkpoint: %w", err)
	}
	if t, err := parseTimestamp(updatedAt); err == nil {
		marker.UpdatedAt = t
	}
	return marker, nil
}

// AdvanceCheckpoint is the only checkpoint mutator. It rejects markers
// that would move progress backwards, protecting against a stale worker
// overwriting newer progress after a crash/restart race.
func (s *Store) AdvanceCheckpoint(ctx context.Context, marker model.CheckpointMarker) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.advanceCheckpointTx(ctx, tx, marker)
	})
}

// ResetStage clears the checkpoint and recorded item failures for a
// stage and version, forcing the next run to rescan from the start and
// retry previously failed items. Committed enrichment rows are kept;
// rescans skip them.
func (s *Store) ResetStage(ctx context.Context, stage model.Stage, version string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM checkpoints WHERE stage = ? AND version = ?",
			string(stage), version); err != nil {
			return fmt.Errorf("clear checkpoint: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM item_failures WHERE stage = ? AND version = ?",
			string(stage), version); err != nil {
			return fmt.Errorf("clear failures: %w", err)
		}
		return nil
	})
}

func (s *Store) advanceCheckpointTx(ctx context.Context, tx *sql.Tx, marker model.CheckpointMarker) error {
	var current int64
	err := tx.QueryRowContext(ctx,
		"SELECT last_item_id FROM checkpoints WHERE stage = ? AND version = ?",
		string(marker.Stage), marker.Version).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// First marker for this stage/version.
	case err != nil:
		return fmt.Errorf("read checkpoint: %w", err)
	case marker.LastItemID < current:
		return fmt.Errorf("stage %s version %s: marker %d behind stored %d: %w",
			marker.Stage, marker.Version, marker.LastItemID, current, model.ErrRegression)
	}

	query, args, err := s.sb.Insert("checkpoints").
		Columns("stage", "version", "last_item_id", "total_processed", "cost_usd", "tokens_used", "updated_at").
		Values(string(marker.Stage), marker.Version, marker.LastItemID,
			marker.TotalProcessed, marker.CostUSD, marker.TokensUsed,
			time.Now().UTC().Format("2006-01-02 15:04:05")).
		Suffix(`ON CONFLICT (stage, version) DO UPDATE SET
            last_item_id = excluded.last_item_id,
            total_processed = excluded.total_processed,
            cost_usd = excluded.cost_usd,
            tokens_used = excluded.tokens_used,
            updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}
