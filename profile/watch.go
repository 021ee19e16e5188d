package profile

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchDirectory migrates *.json files as they are created or written
// in dir, with the same "failures logged, not propagated" policy as
// MigrateDirectory. It blocks until ctx is done, mirroring the
// engine's own config hot-reload watch loop.
func (m *Migrator) WatchDirectory(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("profile: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("profile: watch dir %s: %w", dir, err)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".json" {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			m.migrateWatchedFile(ctx, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.log.WarnCtx(ctx, "profile: watch error", "dir", dir, "error", err)
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Migrator) migrateWatchedFile(ctx context.Context, path string) {
	record, err := m.MigrateFile(path)
	if err != nil {
		m.log.WarnCtx(ctx, "profile: watched migration failed", "path", path, "error", err)
		return
	}
	if record != nil {
		m.log.InfoCtx(ctx, "profile: watched migration applied", "path", path, "backup", record.BackupPath)
	}
}
