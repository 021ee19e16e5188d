package device

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeTorqueReportClampsToMaxTorque(t *testing.T) {
	var buf [torqueReportLen]byte
	n, err := EncodeTorqueReport(buf[:], 10, 25, 7)
	require.NoError(t, err)
	require.Equal(t, torqueReportLen, n)
	require.Equal(t, byte(reportIDTorque), buf[0])

	var clampedBuf [torqueReportLen]byte
	_, err = EncodeTorqueReport(clampedBuf[:], 10, 10, 7)
	require.NoError(t, err)
	require.Equal(t, buf[1:3], clampedBuf[1:3], "target beyond max and target at max encode identically")
}

func TestEncodeTorqueReportRejectsUndersizedBuffer(t *testing.T) {
	buf := make([]byte, 4)
	_, err := EncodeTorqueReport(buf, 10, 5, 1)
	require.Error(t, err)
}

func TestEncodeTorqueReportNeverAllocates(t *testing.T) {
	var buf [torqueReportLen]byte
	allocs := testing.AllocsPerRun(100, func() {
		_, _ = EncodeTorqueReport(buf[:], 21, 10.5, 42)
	})
	require.Zero(t, allocs)
}

func TestEncodeTorqueReportIsSequenceStable(t *testing.T) {
	var buf [torqueReportLen]byte
	_, err := EncodeTorqueReport(buf[:], 10, 1, 0xBEEF)
	require.NoError(t, err)
	require.Equal(t, byte(0xEF), buf[5])
	require.Equal(t, byte(0xBE), buf[6])
}
