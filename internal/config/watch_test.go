package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type watchResult struct {
	gauges []GaugeDescriptor
	err    error
}

// awaitResult drains watcher verdicts until one matches wantErr. A single
// save can surface as several filesystem events (truncate, write, close),
// so matching on the verdict beats counting callbacks.
func awaitResult(t *testing.T, results <-chan watchResult, wantErr bool) watchResult {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case res := <-results:
			if (res.err != nil) == wantErr {
				return res
			}
		case <-deadline:
			t.Fatalf("no watcher verdict with err=%v before the deadline", wantErr)
		}
	}
}

func TestGaugeWatcher_RejectsInvalidEditAndKeepsRunning(t *testing.T) {
	path := writeGauges(t, "- id: \"09380000\"\n")

	w, err := NewGaugeWatcher(path)
	if err != nil {
		t.Fatalf("NewGaugeWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan watchResult, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx, func(gauges []GaugeDescriptor, err error) {
			results <- watchResult{gauges: gauges, err: err}
		})
	}()

	// An edit that drops the required id must be reported as an error and
	// must not hand any descriptors to the callback.
	if err := os.WriteFile(path, []byte("- friendly_name: no id here\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res := awaitResult(t, results, true)
	if len(res.gauges) != 0 {
		t.Errorf("invalid edit produced %d descriptors, want none", len(res.gauges))
	}

	// The watcher must survive the bad edit and report the fix.
	if err := os.WriteFile(path, []byte("- id: \"09380000\"\n- id: \"01646500\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res = awaitResult(t, results, false)
	if len(res.gauges) != 2 {
		t.Errorf("got %d descriptors after the fix, want 2", len(res.gauges))
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after context cancel")
	}
}

func TestNewGaugeWatcher_MissingFile(t *testing.T) {
	if _, err := NewGaugeWatcher(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("watching a missing file must be an error")
	}
}
