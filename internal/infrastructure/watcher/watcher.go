// Package watcher reloads the search engine when a newer corpus file lands in
// the data directory.
package watcher

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/whoiskiwi/PatentSearch/internal/domain/patent"
	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/logging"
	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

// ReloadFunc rebuilds the engine from the corpus file at path.
type ReloadFunc func(ctx context.Context, path string) error

// Watcher reloads the engine when a corpus file in its directory changes.
type Watcher struct {
	dir      string
	debounce time.Duration
	reload   ReloadFunc
	logger   logging.Logger
}

// New returns a Watcher for dir. Bursts of events closer together than
// debounce trigger a single reload.
func New(dir string, debounce time.Duration, reload ReloadFunc, log logging.Logger) *Watcher {
	if debounce <= 0 {
		debounce = time.Second
	}
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		reload:   reload,
		logger:   logging.OrNop(log).Named("watcher"),
	}
}

// Run blocks until ctx is done or the underlying notifier fails to start.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create file watcher")
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDataFileAbsent, "failed to watch data directory").WithDetail(w.dir)
	}
	w.logger.Info("Watching data directory", logging.String("dir", w.dir), logging.Duration("debounce", w.debounce))

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if relevant(ev) {
				w.logger.Debug("Data file event", logging.String("file", ev.Name), logging.String("op", ev.Op.String()))
				pending = time.After(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", logging.Err(err))
		case <-pending:
			pending = nil
			w.fire(ctx)
		}
	}
}

func (w *Watcher) fire(ctx context.Context) {
	path, err := patent.LatestDataFile(w.dir)
	if err != nil {
		w.logger.Warn("No data file to reload", logging.Err(err))
		return
	}
	start := time.Now()
	if err := w.reload(ctx, path); err != nil {
		w.logger.Error("Reload failed, keeping current engine", logging.String("file", path), logging.Err(err))
		return
	}
	w.logger.Info("Reloaded corpus", logging.String("file", path), logging.Duration("elapsed", time.Since(start)))
}

func relevant(ev fsnotify.Event) bool {
	if !patent.IsDataFile(ev.Name) {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename)
}
