package device

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/openracing/core/capabilities"
	"github.com/openracing/core/internal/telemetry/logging"
)

// EventKind discriminates a topology change monitor() reports.
type EventKind uint8

const (
	EventConnected EventKind = iota
	EventDisconnected
)

// TopologyEvent is one device-topology change (spec §4.2 monitor()).
type TopologyEvent struct {
	Kind EventKind
	Info DeviceInfo
}

// monitorEventCapacity is the bounded channel capacity spec §4.2.4
// names for monitor()'s event stream.
const monitorEventCapacity = 100

// MonitorStats is a snapshot of monitor() backpressure, mirroring the
// teacher's resources.Stats shape (spec §4.2.4 EXPANSION).
type MonitorStats struct {
	Queued       int
	DroppedTotal uint64
}

// ListFunc is the device enumeration a Monitor polls on each tick.
type ListFunc func(ctx context.Context) ([]DeviceInfo, error)

// Monitor polls ListFunc and emits Connected/Disconnected events over a
// bounded channel. The producer never blocks: on a full channel it logs
// a warning, drops the event, and leaves the "last known set" unchanged
// for the affected id so the same change is re-emitted next tick (spec
// §4.2 monitor()).
type Monitor struct {
	list   ListFunc
	period time.Duration
	log    logging.Logger

	events  chan TopologyEvent
	dropped atomic.Uint64

	known map[capabilities.Identity]DeviceInfo
}

// NewMonitor constructs a Monitor; period is the poll interval between
// enumeration passes.
func NewMonitor(list ListFunc, period time.Duration, log logging.Logger) *Monitor {
	if log == nil {
		log = logging.Noop()
	}
	if period <= 0 {
		period = time.Second
	}
	return &Monitor{
		list:   list,
		period: period,
		log:    log,
		events: make(chan TopologyEvent, monitorEventCapacity),
		known:  make(map[capabilities.Identity]DeviceInfo),
	}
}

// Events returns the bounded event channel. It is closed when Run
// returns (ctx cancellation), per spec §4.2's "on closed channel, the
// producer stops" — here the producer is this struct, so closing
// happens from this side once Run's context is done.
func (m *Monitor) Events() <-chan TopologyEvent { return m.events }

// Stats snapshots current backpressure: how many events are queued and
// how many have been dropped for a full channel since the Monitor was
// created.
func (m *Monitor) Stats() MonitorStats {
	return MonitorStats{Queued: len(m.events), DroppedTotal: m.dropped.Load()}
}

// Run polls list() every period until ctx is done, publishing topology
// diffs. It owns m.events and closes it on return.
func (m *Monitor) Run(ctx context.Context) {
	defer close(m.events)
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	current, err := m.list(ctx)
	if err != nil {
		m.log.WarnCtx(ctx, "device: monitor list() failed, skipping this tick", "error", err)
		return
	}

	seen := make(map[capabilities.Identity]DeviceInfo, len(current))
	for _, info := range current {
		seen[info.Identity] = info
	}

	for id, info := range seen {
		if _, ok := m.known[id]; ok {
			continue
		}
		if m.trySend(ctx, TopologyEvent{Kind: EventConnected, Info: info}) {
			m.known[id] = info
		}
	}

	for id, info := range m.known {
		if _, ok := seen[id]; ok {
			continue
		}
		if m.trySend(ctx, TopologyEvent{Kind: EventDisconnected, Info: info}) {
			delete(m.known, id)
		}
	}
}

// trySend is the non-blocking producer send spec §4.2 requires: on a
// full channel it logs a warning and returns false so the caller leaves
// the "last known set" untouched for this id, guaranteeing a retry on
// the next tick.
func (m *Monitor) trySend(ctx context.Context, ev TopologyEvent) bool {
	select {
	case m.events <- ev:
		return true
	default:
		m.dropped.Add(1)
		m.log.WarnCtx(ctx, "device: monitor event channel full, dropping event",
			"kind", ev.Kind, "device", ev.Info.ID)
		return false
	}
}
