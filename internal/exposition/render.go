package exposition

import (
	"fmt"
	"io"
	"math"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/ikluhsman/usgs-water-data-metrics/internal/scrape"
)

// Published metric names. These are the exporter's external contract;
// dashboards and alerts key on them.
const (
	metricStreamflow   = "usgs_streamflow_cfs"
	metricSuccesses    = "usgs_exporter_scrape_success_total"
	metricFailures     = "usgs_exporter_scrape_failure_total"
	metricGaugesTotal  = "usgs_exporter_gauges_total"
	metricDuration     = "usgs_exporter_scrape_duration_seconds"
	metricRLRemaining  = "usgs_api_ratelimit_remaining"
	metricRLLimit      = "usgs_api_ratelimit_limit"
	metricRequestsUsed = "usgs_api_requests_per_hour"
)

// Write renders snap as Prometheus text exposition. A gauge without a
// reading is published as NaN — the sentinel existing consumers expect.
// NaN lives only at this edge; it never feeds back into success/failure
// classification.
func Write(w io.Writer, snap *scrape.Snapshot) error {
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families(snap) {
		// The text encoder rejects families without a single series, e.g.
		// streamflow on a zero-gauge cycle or quota gauges before any
		// credential has reported headers.
		if len(mf.Metric) == 0 {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("exposition: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func families(snap *scrape.Snapshot) []*dto.MetricFamily {
	streamflow := gaugeFamily(metricStreamflow, "USGS streamflow in cubic feet per second")
	for _, id := range sortedKeys(snap.Readings) {
		r := snap.Readings[id]
		value := r.Value
		if !r.Available {
			value = math.NaN()
		}
		streamflow.Metric = append(streamflow.Metric, &dto.Metric{
			Label: []*dto.LabelPair{
				labelPair("friendly_name", r.FriendlyName),
				labelPair("gauge_id", id),
				labelPair("location_name", r.LocationName),
			},
			Gauge: &dto.Gauge{Value: proto.Float64(value)},
		})
	}

	remaining := gaugeFamily(metricRLRemaining, "Remaining allowed requests per hour for each USGS API key")
	limit := gaugeFamily(metricRLLimit, "Limit of allowed requests per hour")
	used := gaugeFamily(metricRequestsUsed, "Number of USGS API requests used in the current hour")
	for _, label := range sortedKeys(snap.RateLimits) {
		ob := snap.RateLimits[label]
		if ob.Remaining != nil {
			remaining.Metric = append(remaining.Metric, labeledGauge("api_key_label", label, float64(*ob.Remaining)))
		}
		if ob.Limit != nil {
			limit.Metric = append(limit.Metric, labeledGauge("api_key_label", label, float64(*ob.Limit)))
		}
		if u, ok := ob.Used(); ok {
			used.Metric = append(used.Metric, labeledGauge("api_key_label", label, float64(u)))
		}
	}

	return []*dto.MetricFamily{
		streamflow,
		scalarFamily(metricSuccesses, "Number of successful gauge fetches", float64(snap.Successes)),
		scalarFamily(metricFailures, "Total number of failed gauge fetches", float64(snap.Failures)),
		scalarFamily(metricGaugesTotal, "Total number of gauges configured for polling", float64(snap.GaugesTotal)),
		scalarFamily(metricDuration, "Time spent scraping all gauges", snap.Duration.Seconds()),
		remaining,
		limit,
		used,
	}
}

func gaugeFamily(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

func scalarFamily(name, help string, value float64) *dto.MetricFamily {
	mf := gaugeFamily(name, help)
	mf.Metric = []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(value)}}}
	return mf
}

func labeledGauge(name, value string, v float64) *dto.Metric {
	return &dto.Metric{
		Label: []*dto.LabelPair{labelPair(name, value)},
		Gauge: &dto.Gauge{Value: proto.Float64(v)},
	}
}

func labelPair(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}

// sortedKeys keeps the rendered output deterministic for a given snapshot.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
