package device

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	feature []byte
	output  []byte
	failFeature bool
}

func (w *recordingWriter) WriteFeatureReport(report []byte) error {
	if w.failFeature {
		return os.ErrInvalid
	}
	w.feature = append([]byte(nil), report...)
	return nil
}

func (w *recordingWriter) WriteOutputReport(report []byte) (int, error) {
	w.output = append([]byte(nil), report...)
	return len(report), nil
}

func TestGenericHandshakeIsANoOp(t *testing.T) {
	w := &recordingWriter{}
	h := NewGenericHandshake()
	require.NoError(t, h.Initialize(w))
	require.NoError(t, h.Shutdown(w))
	require.Nil(t, w.feature)
	require.Nil(t, w.output)
}

func TestVMozaHandshakeFallsBackToSafeModeForUntrustedDescriptor(t *testing.T) {
	os.Unsetenv(vMozaOverrideEnv)
	descriptor := []byte{0x05, 0x0F, 0x09, 0x21}
	h := NewVMozaHandshake(descriptor).(*vMozaHandshake)
	require.True(t, h.SafeMode)

	w := &recordingWriter{}
	require.NoError(t, h.Initialize(w))
	require.Equal(t, []byte{reportIDFFBMode, ffbModeSafe}, w.feature)
}

func TestVMozaHandshakeAllowsHighTorqueForTrustedDescriptor(t *testing.T) {
	descriptor := []byte{0x05, 0x0F, 0x09, 0x22}
	RegisterTrustedDescriptor(descriptor)
	h := NewVMozaHandshake(descriptor).(*vMozaHandshake)
	require.False(t, h.SafeMode)

	w := &recordingWriter{}
	require.NoError(t, h.Initialize(w))
	require.Equal(t, []byte{reportIDFFBMode, ffbModeHighTorque}, w.feature)
}

func TestVMozaHandshakeOverrideEnvRelaxesGate(t *testing.T) {
	descriptor := []byte{0x05, 0x0F, 0x09, 0x23}
	os.Setenv(vMozaOverrideEnv, "1")
	defer os.Unsetenv(vMozaOverrideEnv)

	h := NewVMozaHandshake(descriptor).(*vMozaHandshake)
	require.False(t, h.SafeMode)
}

func TestVMozaHandshakeNeverDeniesTheDeviceOnUntrustedDescriptor(t *testing.T) {
	os.Unsetenv(vMozaOverrideEnv)
	h := NewVMozaHandshake([]byte{0x01, 0x02}).(*vMozaHandshake)
	w := &recordingWriter{}
	require.NoError(t, h.Initialize(w), "untrusted descriptor falls back to safe mode, never denies the device")
}

func TestVMozaHandshakeShutdownWritesOffReport(t *testing.T) {
	h := NewVMozaHandshake(nil)
	w := &recordingWriter{}
	require.NoError(t, h.Shutdown(w))
	require.Equal(t, []byte{reportIDFFBMode, 0x00}, w.output)
}
