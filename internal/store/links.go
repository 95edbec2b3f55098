package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/mawsuah/tahqiq/internal/model"
)

// PutCrossLink writes one cross link, normalizing bidirectional pairs so
// duplicates collapse to a single row.
func (s *Store) PutCrossLink(ctx context.Context, link model.CrossLink) error {
	if problems := link.CheckInvariants(); len(problems) > 0 {
		return fmt.Errorf("cross link %d->%d: %s", link.SourceID, link.TargetID, problems[0])
	}
	link = link.Normalize()

	query, args, err := s.sb.Insert("cross_links").
		Columns("source_id", "target_id", "version", "link_type", "subtype",
			"bidirectional", "confidence", "justification").
		Values(link.SourceID, link.TargetID, link.Version, string(link.Type), link.Subtype,
			link.Bidirectional, link.Confidence, link.Justification).
		Suffix("ON CONFLICT (source_id, target_id, version, link_type) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert cross link: %w", err)
	}
	return nil
}

// LinksForItem returns links touching an item for a version, in either
// direction.
func (s *Store) LinksForItem(ctx context.Context, itemID int64, version string) ([]model.CrossLink, error) {
	query, args, err := s.sb.Select("source_id", "target_id", "version", "link_type",
		"subtype", "bidirectional", "confidence", "justification").
		From("cross_links").
		Where(sq.And{
			sq.Eq{"version": version},
			sq.Or{sq.Eq{"source_id": itemID}, sq.Eq{"target_id": itemID}},
		}).
		OrderBy("source_id ASC", "target_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var links []model.CrossLink
	for rows.Next() {
		var l model.CrossLink
		var linkType string
		if err := rows.Scan(&l.SourceID, &l.TargetID, &l.Version, &linkType,
			&l.Subtype, &l.Bidirectional, &l.Confidence, &l.Justification); err != nil {
			return nil, err
		}
		l.Type = model.LinkType(linkType)
		links = append(links, l)
	}
	return links, rows.Err()
}
