// Package exposition renders scrape snapshots as Prometheus text format
// and serves them over HTTP. Every /metrics request loads the gauge list
// and runs one full scrape cycle — the exporter holds no metric state
// between requests.
package exposition
