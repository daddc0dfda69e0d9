package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// GaugeWatcher revalidates the gauge list file whenever it is rewritten.
// Scrapes read the file themselves each cycle, so the watcher changes no
// scrape behavior; it exists so operators (and /healthz) learn about a
// bad edit right away instead of at the next scrape, where it would
// quietly turn into a zero-gauge cycle.
type GaugeWatcher struct {
	path    string
	watcher *fsnotify.Watcher
}

// NewGaugeWatcher starts watching path. Nothing is reported until Run is
// called.
func NewGaugeWatcher(path string) (*GaugeWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}
	return &GaugeWatcher{path: path, watcher: w}, nil
}

// Run blocks until ctx is cancelled, calling onResult with the verdict of
// reloading the file after each rewrite: the parsed descriptors on
// success, or the load error when the new contents do not parse. The file
// on disk is left alone either way.
func (gw *GaugeWatcher) Run(ctx context.Context, onResult func([]GaugeDescriptor, error)) {
	defer gw.watcher.Close()

	slog.Info("gauges: watching for changes", "path", gw.path)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-gw.watcher.Events:
			if !ok {
				return
			}
			if !gw.contentChanged(event) {
				continue
			}

			gauges, err := LoadGauges(gw.path)
			if err != nil {
				slog.Error("gauges: rejected edit, next scrape will see zero gauges",
					"path", gw.path, "err", err)
			} else {
				slog.Info("gauges: list revalidated", "path", gw.path, "gauges", len(gauges))
			}
			onResult(gauges, err)

		case err, ok := <-gw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("gauges: watch error", "err", err)
		}
	}
}

// contentChanged filters events down to ones that can alter the list.
// Many editors save by renaming a temp file over the original, which
// shows up as a Create on a fresh inode; re-register the path so saves
// after that one are still seen.
func (gw *GaugeWatcher) contentChanged(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		_ = gw.watcher.Add(gw.path)
		return true
	}
	return event.Has(fsnotify.Write)
}
