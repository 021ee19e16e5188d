package plugin

import (
	"context"
	"fmt"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/openracing/core/internal/telemetry/logging"
	"github.com/openracing/core/internal/telemetry/tracing"
)

// approxInstructionsPerSecond converts a fuel budget into a wall-clock
// call deadline. See Limits.FuelPerCall for why this is an
// approximation rather than true instruction counting.
const approxInstructionsPerSecond = 5e8

// Runtime is a shared wazero engine plus the host module every plugin
// instance is instantiated against. One Runtime is meant to be reused
// across every loaded plugin, the way a single hidraw fd is reused
// across reads in the device package rather than reopened per call.
type Runtime struct {
	limits    Limits
	engine    wazero.Runtime
	startedAt time.Time
	log       logging.Logger
	tracer    tracing.Tracer
}

// NewRuntime configures a wazero runtime with the resource caps this
// codebase enforces, disables the WASM feature proposals the runtime
// does not sandbox for (bulk memory, multi-value, threads), and wires
// the host function surface.
func NewRuntime(ctx context.Context, limits Limits, log logging.Logger) (*Runtime, error) {
	if log == nil {
		log = logging.Noop()
	}
	limits = limits.withDefaults()

	features := api.CoreFeaturesV2 &^
		api.CoreFeatureBulkMemoryOperations &^
		api.CoreFeatureMultiValue &^
		api.CoreFeatureThreads

	cfg := wazero.NewRuntimeConfig().
		WithCoreFeatures(features).
		WithCloseOnContextDone(true).
		WithMemoryLimitPages(uint32(limits.MemoryBytes / wasmPageSize))

	engine := wazero.NewRuntimeWithConfig(ctx, cfg)

	rt := &Runtime{limits: limits, engine: engine, startedAt: time.Now(), log: log, tracer: tracing.NewTracer(false)}

	if _, err := buildHostModule(ctx, engine); err != nil {
		_ = engine.Close(ctx)
		return nil, fmt.Errorf("plugin: building host module: %w", err)
	}
	return rt, nil
}

// SetTracer replaces the runtime's span tracer; every plugin instance
// it already hosts picks up the change since they all read rt.tracer
// at call time. A nil tracer is ignored.
func (rt *Runtime) SetTracer(t tracing.Tracer) {
	if t != nil {
		rt.tracer = t
	}
}

const wasmPageSize = 65536

func (rt *Runtime) Close(ctx context.Context) error {
	return rt.engine.Close(ctx)
}
