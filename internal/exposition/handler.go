package exposition

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/common/expfmt"

	"github.com/ikluhsman/usgs-water-data-metrics/internal/config"
	"github.com/ikluhsman/usgs-water-data-metrics/internal/scrape"
)

// Scraper runs one full scrape cycle. *scrape.Orchestrator is the
// production implementation.
type Scraper interface {
	Scrape(ctx context.Context, descriptors []config.GaugeDescriptor) *scrape.Snapshot
}

// Handler serves GET /metrics and GET /healthz.
type Handler struct {
	mux        *http.ServeMux
	scraper    Scraper
	gaugesPath string

	// listBroken holds the gauge-list watcher's latest verdict; /healthz
	// reports it so a bad edit trips health checks before the next scrape.
	listBroken atomic.Bool
}

// New builds the exporter's HTTP handler. gaugesPath is re-read on every
// /metrics request so list edits take effect without a restart.
func New(scraper Scraper, gaugesPath string) *Handler {
	h := &Handler{
		mux:        http.NewServeMux(),
		scraper:    scraper,
		gaugesPath: gaugesPath,
	}
	h.mux.HandleFunc("/metrics", h.metrics)
	h.mux.HandleFunc("/healthz", h.healthz)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	descriptors, err := config.LoadGauges(h.gaugesPath)
	if err != nil {
		// A malformed list is never partially trusted: run a zero-gauge
		// cycle so the exporter still answers with its own health metrics.
		slog.Error("exposition: loading gauge list", "path", h.gaugesPath, "err", err)
		descriptors = nil
	}

	snap := h.scraper.Scrape(r.Context(), descriptors)

	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	if err := Write(w, snap); err != nil {
		slog.Error("exposition: writing response", "err", err)
	}
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.listBroken.Load() {
		http.Error(w, "gauge list invalid", http.StatusServiceUnavailable)
		return
	}
	_, _ = io.WriteString(w, "ok\n")
}

// SetGaugeListOK records whether the gauge list currently parses. The
// watcher feeds it after every file rewrite; /metrics is unaffected and
// keeps loading the file per scrape.
func (h *Handler) SetGaugeListOK(ok bool) {
	h.listBroken.Store(!ok)
}
