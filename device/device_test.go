package device

import (
	"context"
	"errors"
	"testing"

	"github.com/openracing/core/capabilities"
	"github.com/stretchr/testify/require"
)

type fakePort struct {
	writeErr   error
	readErr    error
	lastOutput []byte
	readReport []byte
	closed     bool
}

func (p *fakePort) WriteOutputReport(report []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.lastOutput = append([]byte(nil), report...)
	return len(report), nil
}

func (p *fakePort) WriteFeatureReport(report []byte) error { return nil }

func (p *fakePort) ReadInputReport(buf []byte) (int, error) {
	if p.readErr != nil {
		return 0, p.readErr
	}
	n := copy(buf, p.readReport)
	return n, nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func testCaps() capabilities.DeviceCapabilities {
	return capabilities.DeviceCapabilities{MaxTorqueNm: 20, RawTorqueEnabled: true}
}

func TestOpenDegradesToReadOnlyWithoutWritable(t *testing.T) {
	port := &fakePort{}
	h, err := Open(context.Background(), DeviceInfo{ID: "test"}, OpenOptions{
		Port: port, Capabilities: testCaps(), Writable: false,
	})
	require.NoError(t, err)
	require.ErrorIs(t, h.WriteTorque(5), ErrWriteNotPermitted)
}

func TestWriteTorqueEncodesAndWritesThroughPort(t *testing.T) {
	port := &fakePort{}
	h, err := Open(context.Background(), DeviceInfo{ID: "test"}, OpenOptions{
		Port: port, Capabilities: testCaps(), Writable: true,
	})
	require.NoError(t, err)
	require.NoError(t, h.WriteTorque(10))
	require.Equal(t, byte(reportIDTorque), port.lastOutput[0])
}

func TestWriteTorqueRealErrorMarksDisconnected(t *testing.T) {
	port := &fakePort{writeErr: errors.New("usb unplugged")}
	h, err := Open(context.Background(), DeviceInfo{ID: "test"}, OpenOptions{
		Port: port, Capabilities: testCaps(), Writable: true,
	})
	require.NoError(t, err)
	err = h.WriteTorque(1)
	require.ErrorIs(t, err, ErrDisconnected)
	require.Equal(t, uint64(1), h.Health().CommErrorCount)
}

func TestReadTelemetryPublishesHealthSnapshot(t *testing.T) {
	report := make([]byte, inputReportLen)
	report[offInputFlags] = inputFlagHandsOn
	report[offInputTempC] = 100 // 10.0C LE
	port := &fakePort{readReport: report}
	h, err := Open(context.Background(), DeviceInfo{ID: "test"}, OpenOptions{
		Port: port, Capabilities: testCaps(), Writable: true,
	})
	require.NoError(t, err)

	buf := make([]byte, 64)
	health, err := h.ReadTelemetry(buf)
	require.NoError(t, err)
	require.True(t, health.HandsOn)
	require.InDelta(t, 10.0, health.TemperatureC, 0.001)
	require.Equal(t, health.HandsOn, h.Health().HandsOn)
}

func TestReadTelemetryErrorMarksDisconnectedAndIncrementsCommErrors(t *testing.T) {
	port := &fakePort{readErr: errors.New("device gone")}
	h, err := Open(context.Background(), DeviceInfo{ID: "test"}, OpenOptions{
		Port: port, Capabilities: testCaps(), Writable: true,
	})
	require.NoError(t, err)

	buf := make([]byte, 64)
	_, err = h.ReadTelemetry(buf)
	require.ErrorIs(t, err, ErrDisconnected)
	require.Equal(t, uint64(1), h.Health().CommErrorCount)
}

func TestCloseRunsVendorShutdownBestEffortAndClosesPort(t *testing.T) {
	port := &fakePort{}
	h, err := Open(context.Background(), DeviceInfo{ID: "test"}, OpenOptions{
		Port: port, Capabilities: testCaps(), Writable: true, Handshake: NewGenericHandshake(),
	})
	require.NoError(t, err)
	require.NoError(t, h.Close(context.Background()))
	require.True(t, port.closed)
}

func TestCloseIsIdempotent(t *testing.T) {
	port := &fakePort{}
	h, err := Open(context.Background(), DeviceInfo{ID: "test"}, OpenOptions{Port: port, Capabilities: testCaps()})
	require.NoError(t, err)
	require.NoError(t, h.Close(context.Background()))
	require.NoError(t, h.Close(context.Background()))
}
