package device

import (
	"fmt"
	"hash/crc32"
	"os"
)

// maxFeatureReportBytes is the oversized-feature-report rejection limit
// from spec §4.2.1.
const maxFeatureReportBytes = 64

// VendorHandshake runs a per-vendor init/shutdown sequence over a
// device's feature/output report channels (spec §4.2.1).
type VendorHandshake interface {
	Initialize(w ReportWriter) error
	Shutdown(w ReportWriter) error
}

// genericHandshake sends nothing; most registered vendors need no
// explicit protocol beyond HID enumeration and the capability policy.
type genericHandshake struct{}

func (genericHandshake) Initialize(ReportWriter) error { return nil }
func (genericHandshake) Shutdown(ReportWriter) error   { return nil }

// NewGenericHandshake returns a VendorHandshake that performs no I/O.
func NewGenericHandshake() VendorHandshake { return genericHandshake{} }

// descriptorAllowList holds the CRC-32 of every report descriptor an
// operator has vetted as trustworthy for high-torque FFB mode.
var descriptorAllowList = map[uint32]struct{}{}

// RegisterTrustedDescriptor adds a descriptor's CRC-32 to the
// operator-maintained allow-list vMozaHandshake consults.
func RegisterTrustedDescriptor(descriptor []byte) {
	descriptorAllowList[crc32.ChecksumIEEE(descriptor)] = struct{}{}
}

// vMozaOverrideEnv relaxes the descriptor-trust gate when set to "1",
// per spec §4.2.1's "override environment flag".
const vMozaOverrideEnv = "OPENRACING_VMOZA_ALLOW_UNTRUSTED"

const (
	reportIDFFBMode    = 0x10
	ffbModeSafe        = 0x01
	ffbModeHighTorque  = 0x02
)

// vMozaHandshake gates high-torque FFB mode on the device's report
// descriptor CRC-32 matching the operator allow-list. An untrusted
// descriptor never denies the device outright: it falls back to the
// safe FFB mode, and the caller is expected to log that fallback.
type vMozaHandshake struct {
	allowHighTorque bool
	SafeMode        bool
}

// NewVMozaHandshake builds the V-Moza handshake for one device's
// descriptor, resolving the high-torque gate immediately.
func NewVMozaHandshake(descriptor []byte) VendorHandshake {
	_, trusted := descriptorAllowList[crc32.ChecksumIEEE(descriptor)]
	allow := trusted || os.Getenv(vMozaOverrideEnv) == "1"
	return &vMozaHandshake{allowHighTorque: allow, SafeMode: !allow}
}

func (h *vMozaHandshake) Initialize(w ReportWriter) error {
	mode := byte(ffbModeSafe)
	if h.allowHighTorque {
		mode = ffbModeHighTorque
	}
	report := []byte{reportIDFFBMode, mode}
	if len(report) > maxFeatureReportBytes {
		return fmt.Errorf("device: feature report too large (%d bytes)", len(report))
	}
	return w.WriteFeatureReport(report)
}

func (h *vMozaHandshake) Shutdown(w ReportWriter) error {
	_, err := w.WriteOutputReport([]byte{reportIDFFBMode, 0x00})
	return err
}
