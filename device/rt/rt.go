// Package rt applies the real-time setup the torque write path wants
// to run on (spec §4.2, component C): locked memory, an elevated
// scheduling class, and pinned CPU affinity. Every step is best-effort
// and revertible — a sandboxed or unprivileged process failing to
// acquire RT privileges is a warning, never a fatal error (spec §5).
package rt

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/openracing/core/internal/telemetry/logging"
)

// Options configures which RT facilities to request.
type Options struct {
	LockMemory    bool
	SchedPriority int // 0 disables scheduler changes
	CPU           int // negative disables affinity pinning
}

// revertFunc undoes one applied facility.
type revertFunc func() error

// Handle reverts whichever facilities Apply successfully acquired.
type Handle struct {
	reverts []revertFunc
}

// Revert undoes every facility this handle applied, in reverse order,
// logging (not propagating) any failure along the way.
func (h *Handle) Revert(ctx context.Context, log logging.Logger) {
	if log == nil {
		log = logging.Noop()
	}
	for i := len(h.reverts) - 1; i >= 0; i-- {
		if err := h.reverts[i](); err != nil {
			log.ErrorCtx(ctx, "rt: failed to revert RT facility", "error", err)
		}
	}
	h.reverts = nil
}

// Apply attempts each requested facility in turn. Every failure is
// logged as a warning and setup continues with the next facility —
// none of them block the caller from proceeding without RT privileges.
func Apply(ctx context.Context, opts Options, log logging.Logger) *Handle {
	h := &Handle{}
	if log == nil {
		log = logging.Noop()
	}

	if opts.LockMemory {
		if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
			log.WarnCtx(ctx, "rt: mlockall failed, continuing without locked memory", "error", err)
		} else {
			h.reverts = append(h.reverts, func() error { return unix.Munlockall() })
		}
	}

	if opts.SchedPriority > 0 {
		prev, err := setFIFOScheduler(opts.SchedPriority)
		if err != nil {
			log.WarnCtx(ctx, "rt: sched_setscheduler failed, continuing at default priority", "error", err)
		} else {
			h.reverts = append(h.reverts, func() error { return restoreScheduler(prev) })
		}
	}

	if opts.CPU >= 0 {
		prevMask, err := pinCPU(opts.CPU)
		if err != nil {
			log.WarnCtx(ctx, "rt: sched_setaffinity failed, continuing without CPU pin", "error", err)
		} else {
			h.reverts = append(h.reverts, func() error { return restoreAffinity(prevMask) })
		}
	}

	return h
}

type savedScheduler struct {
	policy int
	param  unix.SchedParam
}

func setFIFOScheduler(priority int) (savedScheduler, error) {
	policy, err := unix.SchedGetscheduler(0)
	if err != nil {
		return savedScheduler{}, fmt.Errorf("read current scheduler: %w", err)
	}
	var prevParam unix.SchedParam
	if err := unix.SchedGetparam(0, &prevParam); err != nil {
		return savedScheduler{}, fmt.Errorf("read current sched param: %w", err)
	}
	saved := savedScheduler{policy: policy, param: prevParam}

	param := unix.SchedParam{Priority: int32(priority)}
	if err := unix.SchedSetscheduler(0, unix.SCHED_FIFO, &param); err != nil {
		return savedScheduler{}, err
	}
	return saved, nil
}

func restoreScheduler(saved savedScheduler) error {
	return unix.SchedSetscheduler(0, saved.policy, &saved.param)
}

func pinCPU(cpu int) (unix.CPUSet, error) {
	var prev unix.CPUSet
	if err := unix.SchedGetaffinity(0, &prev); err != nil {
		return unix.CPUSet{}, err
	}
	var set unix.CPUSet
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return unix.CPUSet{}, err
	}
	return prev, nil
}

func restoreAffinity(prev unix.CPUSet) error {
	return unix.SchedSetaffinity(0, &prev)
}
