package run

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
)

// CompletionFunc is invoked once per run when its run.json appears.
type CompletionFunc func(rc Context)

// Watcher notices completed runs by watching the runs directory for the
// metadata file each run writes last.
type Watcher struct {
	baseDir string
	fsw     *fsnotify.Watcher
	logger  logging.Logger
	seen    map[string]bool
}

// NewWatcher starts watching baseDir and every existing run directory in it.
func NewWatcher(baseDir string, log logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "cannot create run watcher")
	}
	if err := fsw.Add(baseDir); err != nil {
		_ = fsw.Close()
		return nil, errors.Wrapf(err, errors.ErrCodeInternal, "cannot watch runs directory %q", baseDir)
	}

	w := &Watcher{
		baseDir: baseDir,
		fsw:     fsw,
		logger:  log.Named("run_watcher"),
		seen:    make(map[string]bool),
	}
	// In-flight runs created before the watcher started.
	existing, err := List(baseDir)
	if err == nil {
		for _, rc := range existing {
			if err := fsw.Add(rc.Dir); err != nil {
				w.logger.Warn("cannot watch run directory",
					logging.String("run_id", rc.ID()), logging.Err(err))
			}
		}
	}
	return w, nil
}

// Watch blocks, invoking onComplete for each run whose run.json arrives,
// until ctx is canceled or the watcher closes.
func (w *Watcher) Watch(ctx context.Context, onComplete CompletionFunc) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event, onComplete)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("run watcher error", logging.Err(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event, onComplete CompletionFunc) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	name := filepath.Base(event.Name)

	// New run directory appears directly under the base dir; start
	// watching it for the metadata file.
	if filepath.Dir(event.Name) == filepath.Clean(w.baseDir) && strings.HasPrefix(name, runPrefix) {
		if err := w.fsw.Add(event.Name); err != nil {
			w.logger.Warn("cannot watch new run directory",
				logging.String("dir", event.Name), logging.Err(err))
		}
		return
	}

	if name != MetadataFile {
		return
	}
	runID := filepath.Base(filepath.Dir(event.Name))
	if w.seen[runID] {
		return
	}
	rc, err := Open(w.baseDir, runID)
	if err != nil {
		w.logger.Warn("completed run vanished before open",
			logging.String("run_id", runID), logging.Err(err))
		return
	}
	w.seen[runID] = true
	w.logger.Info("run completed", logging.String("run_id", runID))
	onComplete(rc)
}

// Close stops the watcher and unblocks Watch.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
