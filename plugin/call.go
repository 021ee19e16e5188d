package plugin

import (
	"context"
	"time"

	"github.com/tetratelabs/wazero/api"

	"github.com/openracing/core/internal/telemetry/tracing"
)

// Process invokes the plugin's process(throttle, brake) -> torque
// export. Exactly one call may be in flight per instance at a time;
// serializing that is the caller's responsibility (the FFB pipeline
// already drives plugins one at a time per tick).
func (inst *Instance) Process(ctx context.Context, throttle, brake float32) (float32, error) {
	ctx, span := inst.rt.tracer.StartSpan(ctx, "plugin.process")
	span.SetAttribute(tracing.AttrPluginID, inst.ID.String())
	defer span.End()

	if disabled, info := inst.IsDisabled(); disabled {
		return 0, &disabledError{info: *info}
	}

	budget := inst.rt.limits.FuelPerCall
	deadline := time.Duration(float64(budget)/approxInstructionsPerSecond*float64(time.Second)) + time.Millisecond
	callCtx, cancel := context.WithTimeout(withInstance(ctx, inst), deadline)
	defer cancel()

	start := time.Now()
	results, err := inst.processFn.Call(callCtx, api.EncodeF32(throttle), api.EncodeF32(brake))
	elapsed := time.Since(start)

	if err != nil {
		trap := classifyTrap(err, budget)
		inst.disable(trap.Error(), trap.Location)
		span.SetAttribute("plugin.trap", trap.Error())
		return 0, trap
	}

	inst.processCount.Add(1)
	inst.totalProcessTimeUs.Add(uint64(elapsed.Microseconds()))
	return api.DecodeF32(results[0]), nil
}
