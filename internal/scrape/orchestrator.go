package scrape

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ikluhsman/usgs-water-data-metrics/internal/config"
	"github.com/ikluhsman/usgs-water-data-metrics/internal/usgs"
)

// Fetcher resolves one station ID to a reading outcome. *usgs.Client is
// the production implementation.
type Fetcher interface {
	Fetch(ctx context.Context, gaugeID string, credentials []usgs.Credential) (usgs.Outcome, []usgs.RateLimitObservation)
}

// Orchestrator runs scrape cycles over a gauge descriptor list with
// bounded parallelism. It is stateless across cycles and safe for
// concurrent use.
type Orchestrator struct {
	fetcher     Fetcher
	credentials []usgs.Credential
	maxWorkers  int
	now         func() time.Time // injectable for tests
}

// New builds an Orchestrator. maxWorkers values below one are clamped to
// one; the effective pool is further capped at the gauge count per cycle.
func New(fetcher Fetcher, credentials []usgs.Credential, maxWorkers int) *Orchestrator {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Orchestrator{
		fetcher:     fetcher,
		credentials: credentials,
		maxWorkers:  maxWorkers,
		now:         time.Now,
	}
}

// result pairs one task's outcome with the descriptor that produced it.
type result struct {
	desc         config.GaugeDescriptor
	outcome      usgs.Outcome
	observations []usgs.RateLimitObservation
}

// Scrape fans descriptors out across the worker pool and merges every
// task's outcome into a fresh Snapshot. Results converge through a single
// merging reader, so each gauge's entry is written exactly once and no
// two writers ever touch the snapshot concurrently. Completion order does
// not affect the output. Scrape never fails part-way: a gauge that could
// not be read appears as an unavailable entry, and an empty descriptor
// list yields a zero-gauge snapshot.
func (o *Orchestrator) Scrape(ctx context.Context, descriptors []config.GaugeDescriptor) *Snapshot {
	start := o.now()
	snap := newSnapshot(len(descriptors))
	if len(descriptors) == 0 {
		snap.Duration = o.now().Sub(start)
		return snap
	}

	workers := o.maxWorkers
	if len(descriptors) < workers {
		workers = len(descriptors)
	}

	jobs := make(chan config.GaugeDescriptor)
	results := make(chan result)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for desc := range jobs {
				outcome, observations := o.fetcher.Fetch(ctx, desc.ID, o.credentials)
				results <- result{desc: desc, outcome: outcome, observations: observations}
			}
		}()
	}

	go func() {
		for _, desc := range descriptors {
			jobs <- desc
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	for res := range results {
		merge(snap, res)
	}

	snap.Duration = o.now().Sub(start)
	return snap
}

func merge(snap *Snapshot, res result) {
	desc := res.desc

	friendly := desc.FriendlyName
	if friendly == "" {
		friendly = desc.Name
	}
	if friendly == "" {
		friendly = desc.ID
	}
	location := desc.Name
	if location == "" {
		location = desc.ID
	}

	snap.Readings[desc.ID] = Reading{
		FriendlyName: friendly,
		LocationName: location,
		Value:        res.outcome.Value,
		Available:    res.outcome.Available,
	}

	if res.outcome.Available {
		snap.Successes++
	} else {
		snap.Failures++
		slog.Warn("scrape: no reading for gauge", "gauge_id", desc.ID)
	}

	// Last-writer-wins per credential label. Quota state is effectively
	// monotonic within the hour, so ordering between tasks does not matter.
	for _, ob := range res.observations {
		snap.RateLimits[ob.CredentialLabel] = ob
	}
}
