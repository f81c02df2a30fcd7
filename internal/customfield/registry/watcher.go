package registry

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a StaticProvider whenever its schema file changes.
type Watcher struct {
	path     string
	provider *StaticProvider
	debounce time.Duration
	logger   *slog.Logger
	// OnReload is called after every successful reload.
	OnReload func()
}

func NewWatcher(path string, p *StaticProvider, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &Watcher{path: path, provider: p, debounce: debounce, logger: logger}
}

// Start loads the file once and then watches its directory. Editors replace
// files by rename, so the directory is watched rather than the file.
func (w *Watcher) Start(ctx context.Context) (func(), error) {
	if err := w.provider.LoadFile(w.path); err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	target := filepath.Clean(w.path)
	go func() {
		defer fw.Close()
		var timer <-chan time.Time
		for {
			select {
			case ev := <-fw.Events:
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				timer = time.After(w.debounce)
			case <-timer:
				timer = nil
				if err := w.provider.LoadFile(w.path); err != nil {
					w.logger.Warn("reload static schema", "path", w.path, "err", err)
					continue
				}
				w.logger.Info("static schema reloaded", "path", w.path)
				if w.OnReload != nil {
					w.OnReload()
				}
			case err := <-fw.Errors:
				if err != nil {
					w.logger.Warn("fsnotify error", "err", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return cancel, nil
}
