package configwriter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteResult reports whether WriteFile actually touched disk and what
// changed relative to the previous contents.
type WriteResult struct {
	Changed bool
	Changes []Change
}

// WriteFile updates path with the desired sidecar contract. If path
// already contains an equivalent contract (Diff reports no changes), the
// file is left untouched. Otherwise the new contract is written
// atomically via a temp-file-plus-rename, same as a profile migration.
func WriteFile(path string, desired Endpoint) (WriteResult, error) {
	if err := Validate(desired); err != nil {
		return WriteResult{}, err
	}

	var existing Endpoint
	if raw, err := os.ReadFile(path); err == nil {
		if jerr := json.Unmarshal(raw, &existing); jerr != nil {
			return WriteResult{}, fmt.Errorf("configwriter: existing file %s is not valid JSON: %w", path, jerr)
		}
	} else if !os.IsNotExist(err) {
		return WriteResult{}, fmt.Errorf("configwriter: reading %s: %w", path, err)
	}

	changes := Diff(existing, desired)
	if len(changes) == 0 {
		return WriteResult{Changed: false}, nil
	}

	data, err := Generate(desired)
	if err != nil {
		return WriteResult{}, err
	}
	if err := atomicWriteFile(path, data, 0o644); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Changed: true, Changes: changes}, nil
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("configwriter: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("configwriter: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("configwriter: closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("configwriter: setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("configwriter: renaming into place: %w", err)
	}
	return nil
}
