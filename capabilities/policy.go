package capabilities

import "time"

// Policy decides a device's capabilities given its product ID, coarse
// kind, and requested transport mode. A vendor with only one product
// line can ignore product/mode and return a constant value.
type Policy interface {
	Capabilities(product uint16, kind DeviceKind, mode TransportMode) DeviceCapabilities
}

// PolicyFunc adapts a plain function to Policy.
type PolicyFunc func(product uint16, kind DeviceKind, mode TransportMode) DeviceCapabilities

func (f PolicyFunc) Capabilities(product uint16, kind DeviceKind, mode TransportMode) DeviceCapabilities {
	return f(product, kind, mode)
}

// vMozaVendorID is the vendor whose wheelbases expose the
// raw-hidraw/kernel-pidff transport switch described in the
// specification.
const vMozaVendorID uint16 = 0x346E

func vMozaPolicy() Policy {
	return PolicyFunc(func(_ uint16, kind DeviceKind, mode TransportMode) DeviceCapabilities {
		switch kind {
		case KindWheelbase:
			caps := DeviceCapabilities{
				MaxTorqueNm:        21,
				EncoderResolution:  65536,
				MinReportPeriod:    time.Millisecond,
				SupportsHandsOn:    true,
				SupportsHighTorque: true,
			}
			// In kernel-PID-FF mode the 1kHz raw path is disabled; the
			// kernel driver owns FFB output instead.
			caps.RawTorqueEnabled = mode != TransportKernelPIDFF
			return caps
		case KindPedals:
			return DeviceCapabilities{
				MaxTorqueNm:       0,
				EncoderResolution: 4096,
				MinReportPeriod:   2 * time.Millisecond,
				RawTorqueEnabled:  false,
			}
		default:
			return conservativeDefault
		}
	})
}

// genericWheelbasePolicy backs vendors with no special-cased handling
// beyond the wheelbase-vs-peripheral-vs-unknown split.
func genericWheelbasePolicy(maxTorqueNm float64, resolution uint32) Policy {
	return PolicyFunc(func(_ uint16, kind DeviceKind, _ TransportMode) DeviceCapabilities {
		switch kind {
		case KindWheelbase:
			return DeviceCapabilities{
				MaxTorqueNm:        maxTorqueNm,
				EncoderResolution:  resolution,
				MinReportPeriod:    time.Millisecond,
				RawTorqueEnabled:   true,
				SupportsHandsOn:    true,
				SupportsHighTorque: maxTorqueNm >= 15,
			}
		case KindPedals, KindShifter, KindHandbrake:
			return DeviceCapabilities{
				EncoderResolution: 4096,
				MinReportPeriod:   2 * time.Millisecond,
			}
		default:
			return conservativeDefault
		}
	})
}
