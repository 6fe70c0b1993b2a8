package lint

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// DefaultSettle is how long Watch waits for writes to stop before reporting.
const DefaultSettle = 100 * time.Millisecond

// Watcher reports changes to a fixed set of files.
type Watcher struct {
	Logger *slog.Logger

	// Settle groups bursts of events, such as an editor's truncate and write.
	Settle time.Duration
}

// Watch calls onChange with the changed paths until ctx is done. Parent
// directories are watched so files replaced by rename are still seen.
func (w *Watcher) Watch(ctx context.Context, paths []string, onChange func(changed []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	wanted := make(map[string]string, len(paths))
	dirs := make(map[string]bool)
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return errors.Wrapf(err, "failed to resolve %s", path)
		}
		wanted[abs] = path
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "failed to watch %s", dir)
		}
		dirs[dir] = true
	}

	settle := w.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	timer := time.NewTimer(settle)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			path, ok := wanted[filepath.Clean(event.Name)]
			if !ok {
				continue
			}
			if len(pending) == 0 {
				timer.Reset(settle)
			}
			pending[path] = true
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if w.Logger != nil {
				w.Logger.Warn("file watcher error", "error", err)
			}
		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for _, path := range paths {
				if pending[path] {
					changed = append(changed, path)
				}
			}
			pending = make(map[string]bool)
			onChange(changed)
		}
	}
}
