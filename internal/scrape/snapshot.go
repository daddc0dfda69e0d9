package scrape

import (
	"time"

	"github.com/ikluhsman/usgs-water-data-metrics/internal/usgs"
)

// Reading is one gauge's entry in a Snapshot, with display labels already
// resolved from its descriptor. Available mirrors the client outcome tag:
// false means no recent reading, whatever Value holds is then meaningless.
type Reading struct {
	FriendlyName string
	LocationName string
	Value        float64
	Available    bool
}

// Snapshot is the complete, self-consistent result of one scrape cycle.
// It is built fresh per cycle, fully populated before being handed off,
// and never mutated afterwards — the exporter keeps no metric state
// between cycles.
type Snapshot struct {
	// Readings holds exactly one entry per distinct configured gauge ID.
	Readings map[string]Reading

	// GaugesTotal is the length of the descriptor list this cycle ran over.
	GaugesTotal int

	Successes int
	Failures  int

	// Duration is the wall-clock time of the whole cycle.
	Duration time.Duration

	// RateLimits holds the latest quota observation per credential label.
	RateLimits map[string]usgs.RateLimitObservation
}

func newSnapshot(gaugesTotal int) *Snapshot {
	return &Snapshot{
		Readings:    make(map[string]Reading, gaugesTotal),
		GaugesTotal: gaugesTotal,
		RateLimits:  make(map[string]usgs.RateLimitObservation),
	}
}
