package adapter

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	m "github.com/mouse-blink/tracelift/internal/model"
)

// Watcher reports content changes of a single file.
type Watcher interface {
	// Watch blocks until ctx is done, calling fn after each settled change.
	Watch(ctx context.Context, path m.Path, fn func(m.Path)) error
}

// FSWatcher watches the parent directory so editors that replace files by
// rename are still observed. Bursts of events are collapsed by debounce and
// a change only counts when the content hash moved.
type FSWatcher struct {
	fs       SourceFSAdapter
	debounce time.Duration
	logger   *zap.Logger
}

// NewFSWatcher creates a watcher.
func NewFSWatcher(fs SourceFSAdapter, debounce time.Duration, logger *zap.Logger) *FSWatcher {
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	return &FSWatcher{fs: fs, debounce: debounce, logger: logger}
}

// Watch implements Watcher.
func (w *FSWatcher) Watch(ctx context.Context, path m.Path, fn func(m.Path)) error {
	abs, err := filepath.Abs(string(path))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	last, err := w.fs.HashFile(m.Path(abs))
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	defer func() {
		_ = watcher.Close()
	}()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	var settle <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			settle = time.After(w.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("watch error", zap.Error(err))
		case <-settle:
			settle = nil

			hash, err := w.fs.HashFile(m.Path(abs))
			if err != nil {
				w.logger.Debug("changed file unreadable", zap.String("path", abs), zap.Error(err))
				continue
			}

			if hash == last {
				continue
			}

			last = hash

			fn(m.Path(abs))
		}
	}
}
