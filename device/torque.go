package device

import (
	"encoding/binary"
	"fmt"
)

const (
	reportIDTorque  = 0x01
	torqueReportLen = 8
)

// EncodeTorqueReport implements §4.2.2's torque encoding: a byte-exact
// report combining maxTorqueNm (from capabilities), the caller's
// targetTorqueNm, and a monotonic 16-bit sequence. It writes into the
// caller-supplied buf and never allocates; buf must be at least
// torqueReportLen bytes.
func EncodeTorqueReport(buf []byte, maxTorqueNm, targetTorqueNm float64, seq uint16) (int, error) {
	if len(buf) < torqueReportLen {
		return 0, fmt.Errorf("device: torque report buffer too small (%d < %d)", len(buf), torqueReportLen)
	}

	clamped := targetTorqueNm
	if clamped > maxTorqueNm {
		clamped = maxTorqueNm
	}
	if clamped < -maxTorqueNm {
		clamped = -maxTorqueNm
	}

	var scaled int16
	if maxTorqueNm > 0 {
		scaled = int16(clamped / maxTorqueNm * 32767)
	}

	buf[0] = reportIDTorque
	binary.LittleEndian.PutUint16(buf[1:3], uint16(scaled))
	binary.LittleEndian.PutUint16(buf[3:5], uint16(int16(maxTorqueNm*100)))
	binary.LittleEndian.PutUint16(buf[5:7], seq)
	buf[7] = 0
	return torqueReportLen, nil
}
