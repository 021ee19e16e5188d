package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/openracing/core/internal/telemetry/logging"
)

// Manager is the single owner of every loaded plugin instance. External
// callers address a plugin by its uuid; only the Manager mutates the
// instances map. The instance cap is enforced with a buffered channel
// semaphore, the same acquire/release shape the resource manager this
// is adapted from uses for in-flight slots.
type Manager struct {
	rt   *Runtime
	log  logging.Logger
	mu   sync.RWMutex
	inst map[uuid.UUID]*Instance
	slots chan struct{}
}

type Stats struct {
	Loaded       int
	MaxInstances int
}

func NewManager(rt *Runtime, log logging.Logger) *Manager {
	if log == nil {
		log = logging.Noop()
	}
	return &Manager{
		rt:   rt,
		log:  log,
		inst: make(map[uuid.UUID]*Instance),
		slots: make(chan struct{}, rt.limits.MaxInstances),
	}
}

func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{Loaded: len(m.inst), MaxInstances: m.rt.limits.MaxInstances}
}

// Load enforces the instance cap before compiling anything, then loads
// and registers the plugin.
func (m *Manager) Load(ctx context.Context, moduleBytes []byte, caps []string) (uuid.UUID, error) {
	select {
	case m.slots <- struct{}{}:
	default:
		return uuid.Nil, ErrInstanceCapacity
	}

	inst, err := loadInstance(ctx, m.rt, moduleBytes, caps, m.log)
	if err != nil {
		<-m.slots
		return uuid.Nil, err
	}

	m.mu.Lock()
	m.inst[inst.ID] = inst
	m.mu.Unlock()

	m.log.InfoCtx(ctx, "plugin: loaded", "plugin", inst.ID)
	return inst.ID, nil
}

func (m *Manager) get(id uuid.UUID) (*Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.inst[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstance, id)
	}
	return inst, nil
}

func (m *Manager) Process(ctx context.Context, id uuid.UUID, throttle, brake float32) (float32, error) {
	inst, err := m.get(id)
	if err != nil {
		return 0, err
	}
	return inst.Process(ctx, throttle, brake)
}

func (m *Manager) IsDisabled(id uuid.UUID) (bool, *DisabledInfo, error) {
	inst, err := m.get(id)
	if err != nil {
		return false, nil, err
	}
	ok, info := inst.IsDisabled()
	return ok, info, nil
}

func (m *Manager) ReEnable(id uuid.UUID) error {
	inst, err := m.get(id)
	if err != nil {
		return err
	}
	inst.ReEnable()
	return nil
}

func (m *Manager) SetData(id uuid.UUID, key string, value []byte) error {
	inst, err := m.get(id)
	if err != nil {
		return err
	}
	inst.SetData(key, value)
	return nil
}

func (m *Manager) Data(id uuid.UUID, key string) ([]byte, bool, error) {
	inst, err := m.get(id)
	if err != nil {
		return nil, false, err
	}
	v, ok := inst.Data(key)
	return v, ok, nil
}

func (m *Manager) SetTelemetry(id uuid.UUID, data []byte) error {
	inst, err := m.get(id)
	if err != nil {
		return err
	}
	inst.SetTelemetry(data)
	return nil
}

// Unload removes and closes the instance. shutdown is best-effort.
func (m *Manager) Unload(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	inst, ok := m.inst[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownInstance, id)
	}
	delete(m.inst, id)
	m.mu.Unlock()

	inst.Close(ctx)
	<-m.slots
	return nil
}

// HotReload validates, instantiates, and initializes newModuleBytes
// before touching the live instance. Only once that fully succeeds is
// the old instance's state copied over and the swap made; on any
// failure the old instance keeps serving calls unchanged.
func (m *Manager) HotReload(ctx context.Context, id uuid.UUID, newModuleBytes []byte) error {
	old, err := m.get(id)
	if err != nil {
		return err
	}

	caps := make([]string, 0, len(old.caps))
	for c := range old.caps {
		caps = append(caps, c)
	}

	next, err := loadInstance(ctx, m.rt, newModuleBytes, caps, old.log)
	if err != nil {
		return fmt.Errorf("plugin: hot reload rejected, old instance unchanged: %w", err)
	}

	// Preserve externally visible state before the swap.
	next.ID = old.ID
	next.processCount.Store(old.processCount.Load())
	next.totalProcessTimeUs.Store(old.totalProcessTimeUs.Load())
	for k, v := range old.snapshotData() {
		next.SetData(k, v)
	}

	m.mu.Lock()
	m.inst[id] = next
	m.mu.Unlock()

	old.Close(ctx)
	m.log.InfoCtx(ctx, "plugin: hot reloaded", "plugin", id)
	return nil
}
