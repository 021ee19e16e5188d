package device

import (
	"context"
	"testing"
	"time"

	"github.com/openracing/core/capabilities"
	"github.com/stretchr/testify/require"
)

func TestMonitorEmitsConnectedThenDisconnected(t *testing.T) {
	id := capabilities.Identity{Vendor: 1, Product: 2}
	info := DeviceInfo{ID: "dev-1", Identity: id}

	present := true
	list := func(context.Context) ([]DeviceInfo, error) {
		if present {
			return []DeviceInfo{info}, nil
		}
		return nil, nil
	}

	m := NewMonitor(list, 5*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)

	ev := <-m.Events()
	require.Equal(t, EventConnected, ev.Kind)
	require.Equal(t, id, ev.Info.Identity)

	present = false
	ev = <-m.Events()
	require.Equal(t, EventDisconnected, ev.Kind)

	cancel()
	_, ok := <-m.Events()
	require.False(t, ok, "channel closes once Run's context is done")
}

func TestMonitorDropsEventsOnFullChannelWithoutAdvancingKnownSet(t *testing.T) {
	m := NewMonitor(func(context.Context) ([]DeviceInfo, error) { return nil, nil }, time.Hour, nil)

	// Fill the channel to capacity directly, bypassing tick(), so the
	// next trySend must fail and be counted as dropped.
	for i := 0; i < monitorEventCapacity; i++ {
		m.events <- TopologyEvent{}
	}

	id := capabilities.Identity{Vendor: 9, Product: 9}
	info := DeviceInfo{ID: "dev-9", Identity: id}
	sent := m.trySend(context.Background(), TopologyEvent{Kind: EventConnected, Info: info})
	require.False(t, sent)
	require.Equal(t, uint64(1), m.Stats().DroppedTotal)

	_, known := m.known[id]
	require.False(t, known, "a dropped event must not advance the known set")
}

func TestMonitorStatsReportsQueueDepth(t *testing.T) {
	m := NewMonitor(func(context.Context) ([]DeviceInfo, error) { return nil, nil }, time.Hour, nil)
	m.events <- TopologyEvent{}
	m.events <- TopologyEvent{}
	require.Equal(t, 2, m.Stats().Queued)
}
