package usgs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultBaseURL is the latest-continuous collection-items endpoint of the
// USGS water-data OGC API.
const DefaultBaseURL = "https://api.waterdata.usgs.gov/ogcapi/v0/collections/latest-continuous/items"

// Query parameter codes for the latest instantaneous discharge reading.
const (
	parameterDischarge     = "00060" // discharge, cubic feet per second
	statisticInstantaneous = "00011"
)

// apiKeyHeader carries the credential secret on authenticated requests.
const apiKeyHeader = "X-Api-Key"

// Credential is one named API key in the failover order. A Credential with
// an empty Secret is still attempted, as an unauthenticated call.
type Credential struct {
	Label  string
	Secret string
}

// CredentialSet builds the exporter's fixed failover order: primary first,
// then backup. Keyless credentials are kept in the set rather than skipped.
func CredentialSet(primary, backup string) []Credential {
	return []Credential{
		{Label: "primary", Secret: primary},
		{Label: "backup", Secret: backup},
	}
}

// RateLimitObservation is the most recently seen quota state for one
// credential, taken from the upstream response headers. Remaining and
// Limit are nil when the corresponding header was absent or not an
// integer. It represents latest-known state, not a running total.
type RateLimitObservation struct {
	CredentialLabel string
	Remaining       *int
	Limit           *int
}

// Used returns the number of requests consumed in the current hour,
// derived as Limit−Remaining. ok is false unless both headers were seen.
func (o RateLimitObservation) Used() (used int, ok bool) {
	if o.Remaining == nil || o.Limit == nil {
		return 0, false
	}
	return *o.Limit - *o.Remaining, true
}

// Outcome is the result of resolving one station ID. Available is the
// explicit tag separating a real reading from "no recent data" — success
// and failure classification keys off it, never off float comparisons.
type Outcome struct {
	GaugeID   string
	Value     float64
	Available bool
}

// Client resolves station IDs to streamflow readings, failing over across
// credentials on rate-limit rejections and request failures. The embedded
// transport retries transient 5xx responses before Fetch sees them. A
// Client is safe for concurrent use; the HTTP connection pool is shared
// across all scrape workers.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client against baseURL, or the production USGS
// endpoint when baseURL is empty.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Transport: newRetryRoundTripper(nil)},
	}
}

// Fetch resolves one station ID to an Outcome, trying credentials in
// order. A 429 advances to the next credential silently; any other
// request failure is logged and advances the same way. Every 2xx response
// yields a RateLimitObservation for the credential that produced it,
// whether or not the body held a reading. The first credential to return
// a parseable body — including a valid empty feature list — wins. An
// exhausted credential set degrades to an unavailable Outcome; Fetch
// never fails hard.
func (c *Client) Fetch(ctx context.Context, gaugeID string, credentials []Credential) (Outcome, []RateLimitObservation) {
	out := Outcome{GaugeID: gaugeID}
	var observations []RateLimitObservation

	for _, cred := range credentials {
		resp, err := c.get(ctx, gaugeID, cred)
		if err != nil {
			slog.Warn("usgs: request failed",
				"gauge_id", gaugeID, "credential", cred.Label, "err", err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			// Quota exhausted on this credential — fail over to the next.
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			slog.Warn("usgs: unexpected status",
				"gauge_id", gaugeID, "credential", cred.Label, "status", resp.StatusCode)
			continue
		}
		// Quota headers ride on every 2xx; keep them even when the body
		// turns out to be unreadable.
		observations = append(observations, observeRateLimit(cred.Label, resp.Header))

		if readErr != nil {
			slog.Warn("usgs: reading response",
				"gauge_id", gaugeID, "credential", cred.Label, "err", readErr)
			continue
		}

		value, available, err := parseReading(body)
		if err != nil {
			slog.Warn("usgs: parsing response",
				"gauge_id", gaugeID, "credential", cred.Label, "err", err)
			continue
		}
		out.Value = value
		out.Available = available
		return out, observations
	}

	return out, observations
}

func (c *Client) get(ctx context.Context, gaugeID string, cred Credential) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	q := url.Values{}
	q.Set("monitoring_location_id", "USGS-"+gaugeID)
	q.Set("parameter_code", parameterDischarge)
	q.Set("statistic_id", statisticInstantaneous)
	q.Set("properties", "value,time")
	req.URL.RawQuery = q.Encode()

	if cred.Secret != "" {
		req.Header.Set(apiKeyHeader, cred.Secret)
	}
	return c.http.Do(req)
}

// observeRateLimit extracts quota headers from a 2xx response. Headers
// that are absent or not integers are dropped without complaint.
func observeRateLimit(label string, h http.Header) RateLimitObservation {
	o := RateLimitObservation{CredentialLabel: label}
	if v, err := strconv.Atoi(h.Get("X-RateLimit-Remaining")); err == nil {
		o.Remaining = &v
	}
	if v, err := strconv.Atoi(h.Get("X-RateLimit-Limit")); err == nil {
		o.Limit = &v
	}
	return o
}

// featureCollection mirrors the subset of the OGC API response we read.
type featureCollection struct {
	Features []struct {
		Properties struct {
			Value json.RawMessage `json:"value"`
		} `json:"properties"`
	} `json:"features"`
}

// parseReading extracts the streamflow value from a collection-items body.
// An empty feature list is a valid "no recent reading" state, reported as
// available=false with no error. The value property is either a bare
// number (possibly quoted) or a nested object carrying the number under
// "value" alongside qualifiers; a nested object missing that key is
// likewise a valid empty reading, while an explicit null is a parse
// error.
func parseReading(body []byte) (value float64, available bool, err error) {
	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return 0, false, fmt.Errorf("decode features: %w", err)
	}
	if len(fc.Features) == 0 {
		return 0, false, nil
	}

	raw := fc.Features[0].Properties.Value
	if isEmptyJSON(raw) {
		return 0, false, fmt.Errorf("feature has no value property")
	}
	if v, ok := coerceFloat(raw); ok {
		return v, true, nil
	}

	var nested struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &nested); err != nil {
		return 0, false, fmt.Errorf("unexpected value shape: %s", raw)
	}
	if len(nested.Value) == 0 {
		// Nested object without a reading, e.g. only qualifiers.
		return 0, false, nil
	}
	if bytes.Equal(nested.Value, []byte("null")) {
		return 0, false, fmt.Errorf("nested value is null")
	}
	if v, ok := coerceFloat(nested.Value); ok {
		return v, true, nil
	}
	return 0, false, fmt.Errorf("unexpected nested value shape: %s", nested.Value)
}

// coerceFloat accepts a JSON number or a numeric string.
func coerceFloat(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func isEmptyJSON(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
