package profile

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/openracing/core/internal/telemetry/logging"
)

// BackupRecord is written before a destructive migration and consulted
// by Restore to validate the backup has not been tampered with.
type BackupRecord struct {
	OriginalPath    string
	BackupPath      string
	OriginalVersion SchemaVersion
	CreatedAt       time.Time
	ContentHash     string
}

var ErrHashMismatch = errors.New("profile: backup content hash mismatch")

const defaultRetainBackups = 5

// Migrator performs on-disk migration: backup, transform, atomic
// overwrite, and retention of old backups, the same json.Marshal +
// os.WriteFile + sha256-checksum idiom the engine's runtime config
// hot-reload system uses for its own config checkpoints.
type Migrator struct {
	backupDir string
	retainN   int
	log       logging.Logger
}

func NewMigrator(backupDir string, retainN int, log logging.Logger) *Migrator {
	if retainN <= 0 {
		retainN = defaultRetainBackups
	}
	if log == nil {
		log = logging.Noop()
	}
	return &Migrator{backupDir: backupDir, retainN: retainN, log: log}
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

// MigrateFile backs up path, migrates its contents, and atomically
// overwrites it. If the file is already current it is a no-op
// returning a nil record. On migration failure the original file is
// never touched; any backup already written remains available.
func (m *Migrator) MigrateFile(path string) (*BackupRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}

	v, err := Detect(data)
	if err != nil {
		return nil, fmt.Errorf("profile: detect %s: %w", path, err)
	}
	if v.IsCurrent() {
		return nil, nil
	}

	if err := os.MkdirAll(m.backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("profile: create backup dir: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	timestamp := time.Now().UTC().Format("20060102_150405")
	backupPath := filepath.Join(m.backupDir, fmt.Sprintf("%s_%s.json.bak", stem, timestamp))

	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("profile: write backup %s: %w", backupPath, err)
	}

	record := &BackupRecord{
		OriginalPath:    path,
		BackupPath:      backupPath,
		OriginalVersion: v,
		CreatedAt:       time.Now(),
		ContentHash:     contentHash(data),
	}

	migrated, err := Migrate(data)
	if err != nil {
		return record, fmt.Errorf("profile: migrate %s: %w", path, err)
	}

	if err := atomicWriteFile(path, migrated, 0o644); err != nil {
		return record, fmt.Errorf("profile: overwrite %s: %w", path, err)
	}

	if err := m.retainRecentBackups(stem); err != nil {
		m.log.WarnCtx(context.Background(), "profile: backup retention cleanup failed", "stem", stem, "error", err)
	}

	return record, nil
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (m *Migrator) retainRecentBackups(stem string) error {
	pattern := filepath.Join(m.backupDir, stem+"_*.json.bak")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	if len(matches) <= m.retainN {
		return nil
	}
	sort.Strings(matches) // timestamp suffix sorts lexically == chronologically
	toRemove := matches[:len(matches)-m.retainN]
	for _, p := range toRemove {
		if err := os.Remove(p); err != nil {
			return err
		}
	}
	return nil
}

// Restore validates record.ContentHash against the backup file on
// disk and returns its bytes. It does not touch OriginalPath.
func Restore(record *BackupRecord) ([]byte, error) {
	data, err := os.ReadFile(record.BackupPath)
	if err != nil {
		return nil, fmt.Errorf("profile: read backup %s: %w", record.BackupPath, err)
	}
	if contentHash(data) != record.ContentHash {
		return nil, ErrHashMismatch
	}
	return data, nil
}

// RestoreToFile validates and rewrites record.OriginalPath with the
// backup's original bytes, atomically.
func (m *Migrator) RestoreToFile(record *BackupRecord) error {
	data, err := Restore(record)
	if err != nil {
		return err
	}
	return atomicWriteFile(record.OriginalPath, data, 0o644)
}

// Outcome is one file's result from a directory migration walk.
type Outcome struct {
	Path   string
	Backup *BackupRecord
	Err    error
}

// MigrateDirectory walks dir non-recursively for *.json files needing
// migration and migrates each. Per-file failures are logged, not
// propagated; only a directory-read failure returns an error.
func (m *Migrator) MigrateDirectory(ctx context.Context, dir string) ([]Outcome, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("profile: read dir %s: %w", dir, err)
	}

	var outcomes []Outcome
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			m.log.WarnCtx(ctx, "profile: directory migration read failed", "path", path, "error", err)
			outcomes = append(outcomes, Outcome{Path: path, Err: err})
			continue
		}
		needs, err := NeedsMigration(data)
		if err != nil {
			m.log.WarnCtx(ctx, "profile: directory migration detect failed", "path", path, "error", err)
			outcomes = append(outcomes, Outcome{Path: path, Err: err})
			continue
		}
		if !needs {
			continue
		}
		record, err := m.MigrateFile(path)
		if err != nil {
			m.log.WarnCtx(ctx, "profile: directory migration failed", "path", path, "error", err)
		}
		outcomes = append(outcomes, Outcome{Path: path, Backup: record, Err: err})
	}
	return outcomes, nil
}
