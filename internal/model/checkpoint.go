package model

import "time"

// CheckpointMarker records durable per-stage progress. The marker only
// ever advances: LastItemID is a high-water mark below which every item
// is terminal (persisted or recorded as permanently failed).
type CheckpointMarker struct {
	Stage   Stage  `json:"stage"`
	Version string `json:"version"`

	LastItemID     int64 `json:"last_item_id"`
	TotalProcessed int64 `json:"total_processed"`

	CostUSD    float64   `json:"cost_usd"`
	TokensUsed int64     `json:"tokens_used"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Zero reports whether the marker is the zero resume point.
func (m CheckpointMarker) Zero() bool {
	return m.LastItemID == 0 && m.TotalProcessed == 0
}

// Behind reports whether m is strictly behind other, i.e. writing m after
// other would regress durable progress.
func (m CheckpointMarker) Behind(other CheckpointMarker) bool {
	return m.LastItemID < other.LastItemID
}
