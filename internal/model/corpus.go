package model

import "time"

// CorpusItem is one immutable source unit: a short text passage plus the
// metadata it arrived with. Items are created once at ingestion and never
// mutated; all enrichment lives in separate versioned tables.
type CorpusItem struct {
	ID            int64  `json:"id"`                        // Global item identifier
	GroupID       int64  `json:"group_id"`                  // Source grouping (book/collection)
	ItemInGroupID int64  `json:"item_in_group_id"`          // Position within the group
	ChapterID     int64  `json:"chapter_id,omitempty"`      // Finer grouping, 0 when absent
	PrimaryText   string `json:"primary_text"`              // Normalized primary-language text
	SecondaryText string `json:"secondary_text,omitempty"`  // Translation, may be empty
	NarratorChain string `json:"narrator_chain,omitempty"`  // Pre-parsed provenance chain
	GroupName     string `json:"group_name,omitempty"`
	ChapterName   string `json:"chapter_name,omitempty"`
	SourceFile    string `json:"source_file,omitempty"`

	// Markers are temporal references pre-extracted by the preprocessing
	// collaborator. Opaque to this core; forwarded into prompts verbatim.
	Markers []string `json:"markers,omitempty"`

	LoadedAt time.Time `json:"loaded_at,omitempty"`
}

// Key identifies an item uniquely within its source corpus.
type Key struct {
	GroupID       int64
	ItemInGroupID int64
}

// Key returns the natural (group, item-in-group) key.
func (c CorpusItem) Key() Key {
	return Key{GroupID: c.GroupID, ItemInGroupID: c.ItemInGroupID}
}

// Stage names the enrichment stages in their fixed dependency order.
type Stage string

const (
	StageTemporal Stage = "temporal"
	StageSemantic Stage = "semantic"
)

// Stages returns the stages in dependency order.
func Stages() []Stage {
	return []Stage{StageTemporal, StageSemantic}
}

// Valid reports whether s names a known stage.
func (s Stage) Valid() bool {
	return s == StageTemporal || s == StageSemantic
}
