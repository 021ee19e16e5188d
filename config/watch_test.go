package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherEmitsChangeOnFileWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")

	m := NewManager(path)
	require.NoError(t, m.Load())
	require.NoError(t, m.Update(Default()))

	w, err := NewWatcher(m)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, errs := w.Watch(ctx)

	updated := Default()
	updated.Environment = "staging"
	require.NoError(t, m.Update(updated))

	select {
	case ch := <-changes:
		require.NotNil(t, ch)
		require.Equal(t, "staging", ch.Config.Environment)
	case err := <-errs:
		t.Fatalf("unexpected watcher error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config change notification")
	}
}

func TestWatchTwiceIsANoOpOnSecondCall(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	m := NewManager(path)
	require.NoError(t, m.Load())
	require.NoError(t, m.Update(Default()))

	w, err := NewWatcher(m)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, _ = w.Watch(ctx)

	changes, errs := w.Watch(ctx)
	_, chOpen := <-changes
	_, errOpen := <-errs
	require.False(t, chOpen)
	require.False(t, errOpen)
}
