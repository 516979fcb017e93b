package storage

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called with the document name after a watched file
// was created, written, or renamed into place.
type ChangeCallback func(name string)

// Watch starts an fsnotify watcher on dir and processes file change events
// for the given document names until ctx is cancelled.
//
// The directory itself is watched rather than the files, so atomic
// replacements (tmp file renamed over the target) are still observed.
func Watch(ctx context.Context, dir string, names []string, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	watched := make(map[string]struct{}, len(names))
	for _, n := range names {
		watched[filepath.Clean(n)] = struct{}{}
	}

	logger.Info("watcher: started", slog.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			rel, relErr := filepath.Rel(dir, ev.Name)
			if relErr != nil {
				continue
			}
			if _, ok := watched[rel]; !ok {
				continue
			}
			logger.Debug("watcher: document changed", slog.String("name", rel), slog.String("op", ev.Op.String()))
			if cb != nil {
				cb(rel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
