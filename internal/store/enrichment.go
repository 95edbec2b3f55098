package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mawsuah/tahqiq/internal/model"
)

// ItemFailure is a permanent, reviewable per-item failure row. Failed
// items are terminal for their (stage, version) and are excluded from
// resume scans.
type ItemFailure struct {
	ItemID   int64
	Stage    model.Stage
	Version  string
	Kind     string // "permanent_call", "domain_validation", "transient_exhausted"
	Reason   string
	Attempts int
}

// CommitTemporalBlock durably writes a block of temporal assignments,
// any permanent failures, and the advanced checkpoint in one
// transaction: the checkpoint never moves past writes that did not land.
func (s *Store) CommitTemporalBlock(ctx context.Context, assignments []model.TemporalAssignment, failures []ItemFailure, marker model.CheckpointMarker) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, a := range assignments {
			if err := s.insertTemporalTx(ctx, tx, a); err != nil {
				return err
			}
		}
		if err := s.insertFailuresTx(ctx, tx, failures); err != nil {
			return err
		}
		return s.advanceCheckpointTx(ctx, tx, marker)
	})
}

// CommitSemanticBlock is the semantic-stage counterpart of
// CommitTemporalBlock.
func (s *Store) CommitSemanticBlock(ctx context.Context, tags []model.SemanticTags, failures []ItemFailure, marker model.CheckpointMarker) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, t := range tags {
			if err := s.insertSemanticTx(ctx, tx, t); err != nil {
				return err
			}
		}
		if err := s.insertFailuresTx(ctx, tx, failures); err != nil {
			return err
		}
		return s.advanceCheckpointTx(ctx, tx, marker)
	})
}

func (s *Store) insertTemporalTx(ctx context.Context, tx *sql.Tx, a model.TemporalAssignment) error {
	before, err := json.Marshal(a.AnchorBefore)
	if err != nil {
		return fmt.Errorf("marshal anchor_before: %w", err)
	}
	after, err := json.Marshal(a.AnchorAfter)
	if err != nil {
		return fmt.Errorf("marshal anchor_after: %w", err)
	}

	query, args, err := s.sb.Insert("temporal_assignments").
		Columns("item_id", "version", "era_id", "sub_era_id", "event_window_id",
			"earliest_ah", "latest_ah", "anchor_before", "anchor_after",
			"evidence_type", "confidence", "reasoning",
			"llm_model", "cost_usd", "duration_ms").
		Values(a.ItemID, a.Version, a.EraID, a.SubEraID, a.EventWindowID,
			a.EarliestAH, a.LatestAH, string(before), string(after),
			string(a.EvidenceType), a.Confidence, a.Reasoning,
			a.LLMModel, a.CostUSD, a.Duration.Milliseconds()).
		Suffix("ON CONFLICT (item_id, version) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert temporal for item %d: %w", a.ItemID, err)
	}
	return nil
}

func (s *Store) insertSemanticTx(ctx context.Context, tx *sql.Tx, t model.SemanticTags) error {
	categories, err := json.Marshal(t.Categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}
	vectors, err := json.Marshal(t.Vectors)
	if err != nil {
		return fmt.Errorf("marshal vectors: %w", err)
	}
	axisA, err := marshalNullable(t.AxisA)
	if err != nil {
		return fmt.Errorf("marshal axis_a: %w", err)
	}
	axisB, err := marshalNullable(t.AxisB)
	if err != nil {
		return fmt.Errorf("marshal axis_b: %w", err)
	}

	query, args, err := s.sb.Insert("semantic_tags").
		Columns("item_id", "version", "speaker", "addressee", "verb_type",
			"modality", "categories", "role", "axis_a", "axis_b", "vectors",
			"llm_model", "cost_usd", "duration_ms").
		Values(t.ItemID, t.Version, t.Speaker, t.Addressee, t.VerbType,
			string(t.Modality), string(categories), string(t.Role), axisA, axisB, string(vectors),
			t.LLMModel, t.CostUSD, t.Duration.Milliseconds()).
		Suffix("ON CONFLICT (item_id, version) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert semantic for item %d: %w", t.ItemID, err)
	}
	return nil
}

func (s *Store) insertFailuresTx(ctx context.Context, tx *sql.Tx, failures []ItemFailure) error {
	for _, f := range failures {
		query, args, err := s.sb.Insert("item_failures").
			Columns("item_id", "stage", "version", "kind", "reason", "attempts").
			Values(f.ItemID, string(f.Stage), f.Version, f.Kind, f.Reason, f.Attempts).
			Suffix("ON CONFLICT (item_id, stage, version) DO UPDATE SET reason = excluded.reason, attempts = excluded.attempts").
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("record failure for item %d: %w", f.ItemID, err)
		}
	}
	return nil
}

// GetTemporal fetches the committed temporal assignment for one item and
// version.
func (s *Store) GetTemporal(ctx context.Context, itemID int64, version string) (model.TemporalAssignment, error) {
	query, args, err := s.temporalSelect().
		Where(sq.Eq{"item_id": itemID, "version": version}).ToSql()
	if err != nil {
		return model.TemporalAssignment{}, fmt.Errorf("build select: %w", err)
	}
	a, err := scanTemporal(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.TemporalAssignment{}, fmt.Errorf("temporal assignment for item %d version %s: %w", itemID, version, ErrNotFound)
	}
	return a, err
}

// EachTemporal streams every temporal assignment for a version in
// ascending item order, without holding the full set in memory.
func (s *Store) EachTemporal(ctx context.Context, version string, fn func(model.TemporalAssignment) error) error {
	query, args, err := s.temporalSelect().
		Where(sq.Eq{"version": version}).OrderBy("item_id ASC").ToSql()
	if err != nil {
		return fmt.Errorf("build select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query temporal: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		a, err := scanTemporal(rows)
		if err != nil {
			return err
		}
		if err := fn(a); err != nil {
			return err
		}
	}
	return rows.Err()
}

// GetSemantic fetches the committed semantic tags for one item and
// version.
func (s *Store) GetSemantic(ctx context.Context, itemID int64, version string) (model.SemanticTags, error) {
	query, args, err := s.semanticSelect().
		Where(sq.Eq{"item_id": itemID, "version": version}).ToSql()
	if err != nil {
		return model.SemanticTags{}, fmt.Errorf("build select: %w", err)
	}
	t, err := scanSemantic(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.SemanticTags{}, fmt.Errorf("semantic tags for item %d version %s: %w", itemID, version, ErrNotFound)
	}
	return t, err
}

// EachSemantic streams every semantic row for a version in ascending
// item order.
func (s *Store) EachSemantic(ctx context.Context, version string, fn func(model.SemanticTags) error) error {
	query, args, err := s.semanticSelect().
		Where(sq.Eq{"version": version}).OrderBy("item_id ASC").ToSql()
	if err != nil {
		return fmt.Errorf("build select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query semantic: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		t, err := scanSemantic(rows)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) temporalSelect() sq.SelectBuilder {
	return s.sb.Select("item_id", "version", "era_id", "sub_era_id", "event_window_id",
		"earliest_ah", "latest_ah", "anchor_before", "anchor_after",
		"evidence_type", "confidence", "reasoning",
		"llm_model", "cost_usd", "duration_ms").
		From("temporal_assignments")
}

func (s *Store) semanticSelect() sq.SelectBuilder {
	return s.sb.Select("item_id", "version", "speaker", "addressee", "verb_type",
		"modality", "categories", "role", "axis_a", "axis_b", "vectors",
		"llm_model", "cost_usd", "duration_ms").
		From("semantic_tags")
}

func scanTemporal(row rowScanner) (model.TemporalAssignment, error) {
	var a model.TemporalAssignment
	var before, after, evidence string
	var durationMS int64
	err := row.Scan(&a.ItemID, &a.Version, &a.EraID, &a.SubEraID, &a.EventWindowID,
		&a.EarliestAH, &a.LatestAH, &before, &after,
		&evidence, &a.Confidence, &a.Reasoning,
		&a.LLMModel, &a.CostUSD, &durationMS)
	if err != nil {
		return a, err
	}
	a.EvidenceType = model.EvidenceType(evidence)
	a.Duration = time.Duration(durationMS) * time.Millisecond
	if err := json.Unmarshal([]byte(before), &a.AnchorBefore); err != nil {
		return a, fmt.Errorf("decode anchor_before for item %d: %w", a.ItemID, err)
	}
	if err := json.Unmarshal([]byte(after), &a.AnchorAfter); err != nil {
		return a, fmt.Errorf("decode anchor_after for item %d: %w", a.ItemID, err)
	}
	return a, nil
}

func scanSemantic(row rowScanner) (model.SemanticTags, error) {
	var t model.SemanticTags
	var modality, categories, role, vectors string
	var axisA, axisB sql.NullString
	var durationMS int64
	err := row.Scan(&t.ItemID, &t.Version, &t.Speaker, &t.Addressee, &t.VerbType,
		&modality, &categories, &role, &axisA, &axisB, &vectors,
		&t.LLMModel, &t.CostUSD, &durationMS)
	if err != nil {
		return t, err
	}
	t.Modality = model.Modality(modality)
	t.Role = model.FunctionalRole(role)
	t.Duration = time.Duration(durationMS) * time.Millisecond
	if err := json.Unmarshal([]byte(categories), &t.Categories); err != nil {
		return t, fmt.Errorf("decode categories for item %d: %w", t.ItemID, err)
	}
	if err := json.Unmarshal([]byte(vectors), &t.Vectors); err != nil {
		return t, fmt.Errorf("decode vectors for item %d: %w", t.ItemID, err)
	}
	if axisA.Valid && axisA.String != "" {
		if err := json.Unmarshal([]byte(axisA.String), &t.AxisA); err != nil {
			return t, fmt.Errorf("decode axis_a for item %d: %w", t.ItemID, err)
		}
	}
	if axisB.Valid && axisB.String != "" {
		if err := json.Unmarshal([]byte(axisB.String), &t.AxisB); err != nil {
			return t, fmt.Errorf("decode axis_b for item %d: %w", t.ItemID, err)
		}
	}
	return t, nil
}

func marshalNullable(v any) (any, error) {
	switch x := v.(type) {
	case *model.AxisA:
		if x == nil {
			return nil, nil
		}
	case *model.AxisB:
		if x == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
