// Package config resolves process configuration from the environment and
// loads the YAML gauge list. The gauge list is re-read on every scrape
// cycle; WatchGauges additionally validates edits as they happen so a bad
// file is noticed before it degrades a scrape to zero gauges.
package config
