package plugin

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

type instanceCtxKey struct{}

func withInstance(ctx context.Context, inst *Instance) context.Context {
	return context.WithValue(ctx, instanceCtxKey{}, inst)
}

func instanceFromContext(ctx context.Context) *Instance {
	inst, _ := ctx.Value(instanceCtxKey{}).(*Instance)
	return inst
}

// buildHostModule instantiates the fixed "openracing_host" module that
// every plugin instance imports. Host functions pull the calling
// Instance out of ctx (set per-call in call.go) rather than closing
// over plugin-specific state, since the host module itself is shared
// across every plugin instance in the runtime.
func buildHostModule(ctx context.Context, engine wazero.Runtime) (api.Module, error) {
	builder := engine.NewHostModuleBuilder(hostModuleName)

	builder.NewFunctionBuilder().WithFunc(hostLog("debug")).Export("log_debug")
	builder.NewFunctionBuilder().WithFunc(hostLog("info")).Export("log_info")
	builder.NewFunctionBuilder().WithFunc(hostLog("warn")).Export("log_warn")
	builder.NewFunctionBuilder().WithFunc(hostLog("error")).Export("log_error")
	builder.NewFunctionBuilder().WithFunc(hostPluginLog).Export("plugin_log")
	builder.NewFunctionBuilder().WithFunc(hostCheckCapability).Export("check_capability")
	builder.NewFunctionBuilder().WithFunc(hostGetTelemetry).Export("get_telemetry")
	builder.NewFunctionBuilder().WithFunc(hostGetTimestampUs).Export("get_timestamp_us")

	return builder.Instantiate(ctx)
}

func readGuestString(mod api.Module, ptr, length uint32) (string, bool) {
	b, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return "", false
	}
	return string(b), true
}

func hostLog(level string) func(ctx context.Context, mod api.Module, ptr, length uint32) {
	return func(ctx context.Context, mod api.Module, ptr, length uint32) {
		inst := instanceFromContext(ctx)
		if inst == nil {
			return
		}
		msg, ok := readGuestString(mod, ptr, length)
		if !ok {
			return
		}
		switch level {
		case "debug":
			inst.log.DebugCtx(ctx, "plugin log", "plugin", inst.ID, "message", msg)
		case "info":
			inst.log.InfoCtx(ctx, "plugin log", "plugin", inst.ID, "message", msg)
		case "warn":
			inst.log.WarnCtx(ctx, "plugin log", "plugin", inst.ID, "message", msg)
		case "error":
			inst.log.ErrorCtx(ctx, "plugin log", "plugin", inst.ID, "message", msg)
		}
	}
}

func hostPluginLog(ctx context.Context, mod api.Module, level, ptr, length uint32) int32 {
	inst := instanceFromContext(ctx)
	if inst == nil {
		return rcError
	}
	msg, ok := readGuestString(mod, ptr, length)
	if !ok {
		return rcInvalidArg
	}
	switch level {
	case 0:
		inst.log.DebugCtx(ctx, "plugin log", "plugin", inst.ID, "message", msg)
	case 1:
		inst.log.InfoCtx(ctx, "plugin log", "plugin", inst.ID, "message", msg)
	case 2:
		inst.log.WarnCtx(ctx, "plugin log", "plugin", inst.ID, "message", msg)
	case 3:
		inst.log.ErrorCtx(ctx, "plugin log", "plugin", inst.ID, "message", msg)
	default:
		return rcInvalidArg
	}
	return rcSuccess
}

func hostCheckCapability(ctx context.Context, mod api.Module, namePtr, length uint32) int32 {
	inst := instanceFromContext(ctx)
	if inst == nil {
		return rcError
	}
	name, ok := readGuestString(mod, namePtr, length)
	if !ok {
		return rcInvalidArg
	}
	if inst.hasCapability(name) {
		return rcCapabilityGranted
	}
	return rcPermissionDenied
}

func hostGetTelemetry(ctx context.Context, mod api.Module, outPtr, outLen uint32) int32 {
	inst := instanceFromContext(ctx)
	if inst == nil {
		return rcError
	}
	if !inst.hasCapability(CapabilityReadTelemetry) {
		return rcPermissionDenied
	}
	data := inst.telemetrySnapshot()
	if data == nil {
		return rcPermissionDenied
	}
	if uint32(len(data)) > outLen {
		return rcBufferTooSmall
	}
	if !mod.Memory().Write(outPtr, data) {
		return rcInvalidArg
	}
	return rcSuccess
}

func hostGetTimestampUs(ctx context.Context, mod api.Module) int64 {
	inst := instanceFromContext(ctx)
	if inst == nil {
		return 0
	}
	return int64(timeSinceMicros(inst.rt.startedAt))
}
