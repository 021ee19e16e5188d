package plugin

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/openracing/core/internal/telemetry/logging"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	rt, err := NewRuntime(context.Background(), Limits{MaxInstances: 2}, logging.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return NewManager(rt, logging.Noop())
}

func TestLoadRejectsModuleMissingProcessExport(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Load(context.Background(), missingProcessWasm(), nil)
	require.ErrorIs(t, err, ErrMissingExport)
}

func TestLoadRejectsModuleMissingMemoryExport(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Load(context.Background(), missingMemoryWasm(), nil)
	require.ErrorIs(t, err, ErrMissingExport)
}

func TestLoadRejectsModuleWhoseInitFails(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Load(context.Background(), initFailWasm(), nil)
	require.ErrorIs(t, err, ErrInitFailed)
}

func TestLoadEnforcesInstanceCap(t *testing.T) {
	m := newTestManager(t) // cap = 2

	_, err := m.Load(context.Background(), validProcessWasm(), nil)
	require.NoError(t, err)
	_, err = m.Load(context.Background(), validProcessWasm(), nil)
	require.NoError(t, err)

	_, err = m.Load(context.Background(), validProcessWasm(), nil)
	require.ErrorIs(t, err, ErrInstanceCapacity)
}

func TestUnloadFreesAnInstanceSlot(t *testing.T) {
	m := newTestManager(t)
	id, err := m.Load(context.Background(), validProcessWasm(), nil)
	require.NoError(t, err)
	_, err = m.Load(context.Background(), validProcessWasm(), nil)
	require.NoError(t, err)

	require.NoError(t, m.Unload(context.Background(), id))
	_, err = m.Load(context.Background(), validProcessWasm(), nil)
	require.NoError(t, err, "unloading should free the instance slot it held")
}

func TestProcessReturnsFirstArgumentForIdentityPlugin(t *testing.T) {
	m := newTestManager(t)
	id, err := m.Load(context.Background(), validProcessWasm(), nil)
	require.NoError(t, err)

	out, err := m.Process(context.Background(), id, 0.5, 0.001)
	require.NoError(t, err)
	require.InDelta(t, 0.5, out, 0.0001)
}

// TestPluginTrapDisablesInstance is scenario S5: a plugin whose
// process traps is disabled after the first call, and stays disabled
// with a message containing "disabled" until re-enabled.
func TestPluginTrapDisablesInstance(t *testing.T) {
	m := newTestManager(t)
	id, err := m.Load(context.Background(), trapProcessWasm(), nil)
	require.NoError(t, err)

	_, err = m.Process(context.Background(), id, 0.5, 0.001)
	require.Error(t, err)

	disabled, _, err := m.IsDisabled(id)
	require.NoError(t, err)
	require.True(t, disabled)

	_, err = m.Process(context.Background(), id, 0.5, 0.001)
	require.ErrorContains(t, err, "disabled")

	require.NoError(t, m.ReEnable(id))
	disabled, _, err = m.IsDisabled(id)
	require.NoError(t, err)
	require.False(t, disabled)
}

// TestHotReloadPreservesStateAndCounters is scenario S6.
func TestHotReloadPreservesStateAndCounters(t *testing.T) {
	m := newTestManager(t)
	id, err := m.Load(context.Background(), validProcessWasm(), nil)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err := m.Process(context.Background(), id, 0.1, 0.0)
		require.NoError(t, err)
	}
	require.NoError(t, m.SetData(id, "test_key", []byte{1, 2, 3, 4, 5}))

	require.NoError(t, m.HotReload(context.Background(), id, validProcessWasm()))

	v, ok, err := m.Data(id, "test_key")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3, 4, 5}, v)

	inst, err := m.get(id)
	require.NoError(t, err)
	require.Equal(t, uint64(10), inst.ProcessCount())

	_, err = m.Process(context.Background(), id, 0.2, 0.0)
	require.NoError(t, err)
	require.Equal(t, uint64(11), inst.ProcessCount())
}

func TestHotReloadLeavesOldInstanceServingOnValidationFailure(t *testing.T) {
	m := newTestManager(t)
	id, err := m.Load(context.Background(), validProcessWasm(), nil)
	require.NoError(t, err)

	err = m.HotReload(context.Background(), id, missingProcessWasm())
	require.Error(t, err)

	out, err := m.Process(context.Background(), id, 0.7, 0.0)
	require.NoError(t, err, "old instance must still serve calls after a rejected reload")
	require.InDelta(t, 0.7, out, 0.0001)
}

func TestProcessOnUnknownInstanceReturnsError(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Process(context.Background(), uuid.UUID{}, 0, 0)
	require.ErrorIs(t, err, ErrUnknownInstance)
}
