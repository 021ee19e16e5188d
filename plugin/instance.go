package plugin

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/openracing/core/internal/telemetry/logging"
)

// Instance is one loaded plugin: its isolated wazero module, exported
// entry points, and the externally visible state (process_count,
// total_process_time_us, plugin_data) that survives hot reload.
type Instance struct {
	ID uuid.UUID

	rt   *Runtime
	log  logging.Logger
	caps map[string]struct{}

	compiled   wazero.CompiledModule
	module     api.Module
	processFn  api.Function
	initFn     api.Function
	shutdownFn api.Function
	getInfoFn  api.Function

	processCount       atomic.Uint64
	totalProcessTimeUs atomic.Uint64

	dataMu sync.Mutex
	data   map[string][]byte

	disableMu sync.Mutex
	disabled  *DisabledInfo

	telemetryMu sync.RWMutex
	telemetry   []byte
}

func (inst *Instance) hasCapability(name string) bool {
	_, ok := inst.caps[name]
	return ok
}

func (inst *Instance) telemetrySnapshot() []byte {
	inst.telemetryMu.RLock()
	defer inst.telemetryMu.RUnlock()
	return inst.telemetry
}

// SetTelemetry publishes the bytes get_telemetry serves to this
// instance. Callers (the FFB pipeline) update this once per tick.
func (inst *Instance) SetTelemetry(data []byte) {
	inst.telemetryMu.Lock()
	inst.telemetry = data
	inst.telemetryMu.Unlock()
}

func (inst *Instance) ProcessCount() uint64       { return inst.processCount.Load() }
func (inst *Instance) TotalProcessTimeUs() uint64 { return inst.totalProcessTimeUs.Load() }

func (inst *Instance) IsDisabled() (bool, *DisabledInfo) {
	inst.disableMu.Lock()
	defer inst.disableMu.Unlock()
	if inst.disabled == nil {
		return false, nil
	}
	d := *inst.disabled
	return true, &d
}

func (inst *Instance) disable(reason, trapLocation string) {
	inst.disableMu.Lock()
	defer inst.disableMu.Unlock()
	if inst.disabled == nil {
		inst.disabled = &DisabledInfo{Reason: reason, Timestamp: time.Now(), TrapLocation: trapLocation}
	}
}

// ReEnable clears a disabled instance's trap record, allowing further
// process calls. It does not reset process_count or plugin_data.
func (inst *Instance) ReEnable() {
	inst.disableMu.Lock()
	inst.disabled = nil
	inst.disableMu.Unlock()
}

func (inst *Instance) Data(key string) ([]byte, bool) {
	inst.dataMu.Lock()
	defer inst.dataMu.Unlock()
	v, ok := inst.data[key]
	return v, ok
}

func (inst *Instance) SetData(key string, value []byte) {
	inst.dataMu.Lock()
	if inst.data == nil {
		inst.data = make(map[string][]byte)
	}
	inst.data[key] = append([]byte(nil), value...)
	inst.dataMu.Unlock()
}

func (inst *Instance) snapshotData() map[string][]byte {
	inst.dataMu.Lock()
	defer inst.dataMu.Unlock()
	out := make(map[string][]byte, len(inst.data))
	for k, v := range inst.data {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

func (inst *Instance) Close(ctx context.Context) {
	if inst.shutdownFn != nil {
		callCtx := withInstance(ctx, inst)
		_, _ = inst.shutdownFn.Call(callCtx) // best-effort, errors ignored per spec
	}
	if inst.module != nil {
		_ = inst.module.Close(ctx)
	}
}

// loadInstance compiles and instantiates moduleBytes, validates the
// required exports, and runs init() if present. Any failure leaves no
// partial state: the compiled/instantiated module is closed before
// returning the error.
func loadInstance(ctx context.Context, rt *Runtime, moduleBytes []byte, caps []string, log logging.Logger) (*Instance, error) {
	if log == nil {
		log = rt.log
	}

	compiled, err := rt.engine.CompileModule(ctx, moduleBytes)
	if err != nil {
		return nil, fmt.Errorf("plugin: compile: %w", err)
	}

	fn, ok := compiled.ExportedFunctions()["process"]
	if !ok || !isSignature(fn, []api.ValueType{api.ValueTypeF32, api.ValueTypeF32}, []api.ValueType{api.ValueTypeF32}) {
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("%w: process(f32,f32)->f32", ErrMissingExport)
	}

	id := uuid.New()
	modCfg := wazero.NewModuleConfig().WithName(id.String()).WithStartFunctions()

	mod, err := rt.engine.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("plugin: instantiate: %w", err)
	}

	if mod.ExportedMemory("memory") == nil {
		_ = mod.Close(ctx)
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("%w: memory", ErrMissingExport)
	}

	capSet := make(map[string]struct{}, len(caps))
	for _, c := range caps {
		capSet[c] = struct{}{}
	}

	inst := &Instance{
		ID:        id,
		rt:        rt,
		log:       log,
		caps:      capSet,
		compiled:  compiled,
		module:    mod,
		processFn: mod.ExportedFunction("process"),
		initFn:    mod.ExportedFunction("init"),
		shutdownFn: mod.ExportedFunction("shutdown"),
		getInfoFn: mod.ExportedFunction("get_info"),
	}

	if inst.initFn != nil {
		callCtx := withInstance(ctx, inst)
		results, err := inst.initFn.Call(callCtx)
		if err != nil {
			_ = mod.Close(ctx)
			_ = compiled.Close(ctx)
			return nil, fmt.Errorf("%w: %v", ErrInitFailed, err)
		}
		if len(results) > 0 && api.DecodeI32(results[0]) != 0 {
			_ = mod.Close(ctx)
			_ = compiled.Close(ctx)
			return nil, fmt.Errorf("%w: code %d", ErrInitFailed, int32(results[0]))
		}
	}

	return inst, nil
}

func isSignature(fn api.FunctionDefinition, params, results []api.ValueType) bool {
	return valueTypesEqual(fn.ParamTypes(), params) && valueTypesEqual(fn.ResultTypes(), results)
}

func valueTypesEqual(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
