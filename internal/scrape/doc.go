// Package scrape coordinates one full scrape cycle: it fans gauge
// descriptors out across a bounded worker pool, runs the reading client
// for each, and folds every outcome into a single Snapshot. A cycle always
// runs to completion — per-gauge failures degrade that gauge's entry, they
// never abort the cycle.
package scrape
