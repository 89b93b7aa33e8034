package configwatcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"ai_blueprint_backend/pkg/logger"
)

// Reloader is called with the absolute path of a file that changed.
type Reloader func(path string)

const debounce = time.Second

// Watch watches the given files and calls reload once per file after writes
// settle. Directories are watched rather than files so that editors which
// replace the file on save are still seen. It blocks until ctx is done.
func Watch(ctx context.Context, paths []string, reload Reloader) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return eris.Wrap(err, "configwatcher: create watcher")
	}
	defer watcher.Close()

	targets := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return eris.Wrapf(err, "configwatcher: resolve %s", p)
		}
		targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return eris.Wrapf(err, "configwatcher: watch %s", dir)
		}
	}

	pending := make(map[string]bool)
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			pending[filepath.Clean(event.Name)] = true
			timer.Reset(debounce)
		case <-timer.C:
			for path := range pending {
				logger.Log.Info("Reloading changed file", zap.String("path", path))
				reload(path)
			}
			pending = make(map[string]bool)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Log.Error("Config watcher error", zap.Error(err))
		}
	}
}
