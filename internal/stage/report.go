package stage

import (
	"time"

	"github.com/mawsuah/tahqiq/internal/model"
)

// Report summarizes one stage run.
type Report struct {
	Stage   model.Stage
	Version string

	Succeeded       int
	FailedPermanent int
	Recovered       int // Succeeded after at least one domain-invariant retry

	CostUSD    float64
	Elapsed    time.Duration
	Checkpoint model.CheckpointMarker

	// Halted is set when the run stopped early at a checkpoint boundary
	// (budget exhausted or cancellation) with items still unprocessed.
	Halted bool
}
