package configwriter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteFileCreatesNewContract(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f125.json")
	e, err := DefaultEndpoint("f1-25")
	require.NoError(t, err)

	result, err := WriteFile(path, e)
	require.NoError(t, err)
	require.True(t, result.Changed)
	require.FileExists(t, path)
}

func TestWriteFileIsNoOpWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gt7.json")
	e, err := DefaultEndpoint("gt7")
	require.NoError(t, err)

	_, err = WriteFile(path, e)
	require.NoError(t, err)
	before, err := os.Stat(path)
	require.NoError(t, err)

	result, err := WriteFile(path, e)
	require.NoError(t, err)
	require.False(t, result.Changed)
	require.Empty(t, result.Changes)

	after, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, before.ModTime(), after.ModTime())
}

func TestWriteFileUpdatesOnChangeAndReportsDiff(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f125.json")
	e, err := DefaultEndpoint("f1-25")
	require.NoError(t, err)
	_, err = WriteFile(path, e)
	require.NoError(t, err)

	updated := e
	updated.Port = 21000
	result, err := WriteFile(path, updated)
	require.NoError(t, err)
	require.True(t, result.Changed)
	require.Len(t, result.Changes, 1)
	require.Equal(t, "port", result.Changes[0].Field)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"port": 21000`)
}

func TestWriteFileRejectsInvalidEndpoint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	_, err := WriteFile(path, Endpoint{})
	require.Error(t, err)
	require.NoFileExists(t, path)
}

func TestWriteFileRejectsCorruptExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f125.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	e, err := DefaultEndpoint("f1-25")
	require.NoError(t, err)
	_, err = WriteFile(path, e)
	require.Error(t, err)
}
