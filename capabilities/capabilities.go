// Package capabilities maps a device identity and HID report
// descriptor to a DeviceCapabilities profile (spec component A, §4.1):
// maximum torque, encoder resolution, minimum report period, and which
// optional features a device supports. It is consulted once per
// device-open, before the vendor handshake runs.
package capabilities

import (
	"strings"
	"time"
)

// Identity names a device by its USB vendor/product pair.
type Identity struct {
	Vendor  uint16
	Product uint16
}

// DeviceKind coarsely classifies what a device physically is, since a
// vendor's capability defaults differ for a wheelbase versus a pedal
// set versus an unrecognized peripheral.
type DeviceKind uint8

const (
	KindUnknown DeviceKind = iota
	KindWheelbase
	KindPedals
	KindShifter
	KindHandbrake
)

// TransportMode selects between the raw 1kHz hidraw torque path and a
// vendor's kernel PID FF driver, for vendors that support both.
type TransportMode uint8

const (
	// TransportUnset means the caller expressed no preference; vendor
	// policies fall back to their own default.
	TransportUnset TransportMode = iota
	TransportRawHIDRaw
	TransportKernelPIDFF
)

// ParseTransportMode accepts the recognized spelling and every alias
// named in the specification: raw|hidraw|0 and kernel|pidff|1.
func ParseTransportMode(s string) (TransportMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "raw-hidraw", "raw", "hidraw", "0":
		return TransportRawHIDRaw, true
	case "kernel-pidff", "kernel", "pidff", "1":
		return TransportKernelPIDFF, true
	case "":
		return TransportUnset, true
	default:
		return TransportUnset, false
	}
}

// DeviceCapabilities is the decision a capability policy hands back to
// the transport layer: how hard the device can be driven and how.
type DeviceCapabilities struct {
	MaxTorqueNm        float64
	EncoderResolution  uint32 // counts per revolution
	MinReportPeriod    time.Duration
	RawTorqueEnabled   bool
	SupportsHandsOn    bool
	SupportsHighTorque bool
}

// conservativeDefault is returned for any vendor the registry does not
// recognize: no raw torque, a 10Nm cap, 4096 cpr, 1ms period.
var conservativeDefault = DeviceCapabilities{
	MaxTorqueNm:       10,
	EncoderResolution: 4096,
	MinReportPeriod:   time.Millisecond,
	RawTorqueEnabled:  false,
}
