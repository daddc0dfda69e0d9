package exposition

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/ikluhsman/usgs-water-data-metrics/internal/scrape"
	"github.com/ikluhsman/usgs-water-data-metrics/internal/usgs"
)

func sampleSnapshot() *scrape.Snapshot {
	remaining, limit := 450, 500
	return &scrape.Snapshot{
		Readings: map[string]scrape.Reading{
			"09380000": {FriendlyName: "Lees Ferry", LocationName: "Colorado River at Lees Ferry, AZ", Value: 12400, Available: true},
			"01646500": {FriendlyName: "01646500", LocationName: "01646500", Available: false},
		},
		GaugesTotal: 2,
		Successes:   1,
		Failures:    1,
		Duration:    1500 * time.Millisecond,
		RateLimits: map[string]usgs.RateLimitObservation{
			"primary": {CredentialLabel: "primary", Remaining: &remaining, Limit: &limit},
		},
	}
}

// render writes the snapshot and parses it back, proving the output is
// valid Prometheus text exposition.
func render(t *testing.T, snap *scrape.Snapshot) map[string]*dto.MetricFamily {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, snap); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(&buf)
	if err != nil {
		t.Fatalf("output does not parse as exposition text: %v\n%s", err, buf.String())
	}
	return mfs
}

func scalarValue(t *testing.T, mfs map[string]*dto.MetricFamily, name string) float64 {
	t.Helper()
	mf, ok := mfs[name]
	if !ok {
		t.Fatalf("family %s missing", name)
	}
	if len(mf.Metric) != 1 {
		t.Fatalf("family %s has %d metrics, want 1", name, len(mf.Metric))
	}
	return mf.Metric[0].GetGauge().GetValue()
}

func TestWrite_StreamflowValuesAndLabels(t *testing.T) {
	mfs := render(t, sampleSnapshot())

	mf := mfs[metricStreamflow]
	if mf == nil {
		t.Fatalf("family %s missing", metricStreamflow)
	}
	if len(mf.Metric) != 2 {
		t.Fatalf("streamflow has %d series, want 2", len(mf.Metric))
	}

	byID := map[string]*dto.Metric{}
	for _, m := range mf.Metric {
		labels := map[string]string{}
		for _, lp := range m.Label {
			labels[lp.GetName()] = lp.GetValue()
		}
		byID[labels["gauge_id"]] = m
		if labels["gauge_id"] == "09380000" {
			if labels["friendly_name"] != "Lees Ferry" {
				t.Errorf("friendly_name = %q", labels["friendly_name"])
			}
			if labels["location_name"] != "Colorado River at Lees Ferry, AZ" {
				t.Errorf("location_name = %q", labels["location_name"])
			}
		}
	}

	if got := byID["09380000"].GetGauge().GetValue(); got != 12400 {
		t.Errorf("available gauge value = %v, want 12400", got)
	}
	if got := byID["01646500"].GetGauge().GetValue(); !math.IsNaN(got) {
		t.Errorf("unavailable gauge value = %v, want NaN", got)
	}
}

func TestWrite_ExporterScalars(t *testing.T) {
	mfs := render(t, sampleSnapshot())

	if got := scalarValue(t, mfs, metricSuccesses); got != 1 {
		t.Errorf("successes = %v, want 1", got)
	}
	if got := scalarValue(t, mfs, metricFailures); got != 1 {
		t.Errorf("failures = %v, want 1", got)
	}
	if got := scalarValue(t, mfs, metricGaugesTotal); got != 2 {
		t.Errorf("gauges_total = %v, want 2", got)
	}
	if got := scalarValue(t, mfs, metricDuration); got != 1.5 {
		t.Errorf("duration = %v, want 1.5", got)
	}
}

func TestWrite_RateLimitFamilies(t *testing.T) {
	mfs := render(t, sampleSnapshot())

	check := func(name string, want float64) {
		t.Helper()
		mf := mfs[name]
		if mf == nil || len(mf.Metric) != 1 {
			t.Fatalf("family %s missing or wrong size: %v", name, mf)
		}
		m := mf.Metric[0]
		if len(m.Label) != 1 || m.Label[0].GetName() != "api_key_label" || m.Label[0].GetValue() != "primary" {
			t.Errorf("%s labels = %v", name, m.Label)
		}
		if got := m.GetGauge().GetValue(); got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
	check(metricRLRemaining, 450)
	check(metricRLLimit, 500)
	check(metricRequestsUsed, 50)
}

func TestWrite_PartialRateLimitHeaders(t *testing.T) {
	limit := 500
	snap := &scrape.Snapshot{
		Readings:   map[string]scrape.Reading{},
		RateLimits: map[string]usgs.RateLimitObservation{"backup": {CredentialLabel: "backup", Limit: &limit}},
	}
	mfs := render(t, snap)

	if mf := mfs[metricRLLimit]; mf == nil || len(mf.Metric) != 1 {
		t.Errorf("limit family = %v, want one series", mf)
	}
	// Without a remaining header neither remaining nor used can be published.
	if mf := mfs[metricRLRemaining]; mf != nil && len(mf.Metric) != 0 {
		t.Errorf("remaining family should have no series, got %v", mf)
	}
	if mf := mfs[metricRequestsUsed]; mf != nil && len(mf.Metric) != 0 {
		t.Errorf("used family should have no series, got %v", mf)
	}
}

func TestWrite_EmptySnapshot(t *testing.T) {
	var buf bytes.Buffer
	snap := &scrape.Snapshot{
		Readings:   map[string]scrape.Reading{},
		RateLimits: map[string]usgs.RateLimitObservation{},
	}
	if err := Write(&buf, snap); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	for _, name := range []string{metricGaugesTotal, metricSuccesses, metricFailures, metricDuration} {
		if !strings.Contains(buf.String(), name) {
			t.Errorf("output missing %s:\n%s", name, buf.String())
		}
	}
}
