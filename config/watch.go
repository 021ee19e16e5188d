package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change is one observed configuration update, delivered to
// Watcher.Watch subscribers.
type Change struct {
	Config           Config
	ChangedAt        time.Time
	PreviousChecksum string
}

// Watcher watches the Manager's config file for writes and reloads it,
// directly modeled on the teacher's HotReloadSystem
// (engine/internal/runtime/runtime.go): one fsnotify watcher on the
// file's parent directory, filtered to write events on the exact file.
type Watcher struct {
	manager    *Manager
	watcher    *fsnotify.Watcher
	mu         sync.Mutex
	isWatching bool
}

// NewWatcher constructs a Watcher bound to manager's config file.
func NewWatcher(manager *Manager) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: creating file watcher: %w", err)
	}
	return &Watcher{manager: manager, watcher: w}, nil
}

// Watch starts watching and returns channels of successful reloads and
// errors. Both channels close when ctx is done or Stop is called.
func (w *Watcher) Watch(ctx context.Context) (<-chan *Change, <-chan error) {
	changes := make(chan *Change, 10)
	errs := make(chan error, 10)

	w.mu.Lock()
	if w.isWatching {
		w.mu.Unlock()
		close(changes)
		close(errs)
		return changes, errs
	}
	dir := filepath.Dir(w.manager.configPath)
	if err := w.watcher.Add(dir); err != nil {
		w.mu.Unlock()
		errs <- fmt.Errorf("config: watching %s: %w", dir, err)
		close(changes)
		close(errs)
		return changes, errs
	}
	w.isWatching = true
	w.mu.Unlock()

	go w.loop(ctx, changes, errs)
	return changes, errs
}

func (w *Watcher) loop(ctx context.Context, changes chan<- *Change, errs chan<- error) {
	defer close(changes)
	defer close(errs)

	var lastChecksum string
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != w.manager.configPath {
				continue
			}
			if ev.Op&fsnotify.Write != fsnotify.Write {
				continue
			}
			cfg, err := loadConfigFile(w.manager.configPath)
			if err != nil {
				errs <- err
				continue
			}
			if err := w.manager.validateLocked(cfg); err != nil {
				errs <- fmt.Errorf("config: reloaded file failed validation: %w", err)
				continue
			}
			if cfg.Checksum == "" {
				cfg.Checksum = checksum(*cfg)
			}
			if cfg.Checksum == lastChecksum {
				continue
			}
			w.manager.mu.Lock()
			w.manager.current = cfg
			w.manager.mu.Unlock()

			change := &Change{Config: *cfg, ChangedAt: time.Now(), PreviousChecksum: lastChecksum}
			lastChecksum = cfg.Checksum
			changes <- change
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			errs <- err
		case <-ctx.Done():
			return
		}
	}
}

// Stop closes the underlying watcher. Safe to call even if Watch was
// never called.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.isWatching {
		return nil
	}
	w.isWatching = false
	return w.watcher.Close()
}
