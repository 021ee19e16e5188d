// Package device implements HID enumeration and transport for racing
// wheelbases and peripherals (spec component B, §4.2): listing
// candidate devices, opening them under a capability profile, the
// lock-free torque write path, blocking telemetry reads, and a bounded
// device-topology event stream.
package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openracing/core/capabilities"
	"github.com/openracing/core/device/seqlock"
	"github.com/openracing/core/internal/telemetry/logging"
	"github.com/openracing/core/internal/telemetry/tracing"
)

// DeviceId identifies one enumerated HID device for the lifetime of one
// enumeration pass (a hidraw node path on Linux).
type DeviceId string

// DeviceInfo is what list() reports about a candidate HID device before
// it is opened.
type DeviceInfo struct {
	ID              DeviceId
	Identity        capabilities.Identity
	Kind            capabilities.DeviceKind
	Descriptor      []byte
	Serial          string
	InterfaceNumber int // -1 if unresolved; recovered from sysfs on Linux
}

var (
	// ErrDisconnected is wrapped into the error returned when a port read
	// or write fails; each such failure also increments CommErrorCount.
	// The handle keeps no separate disconnected state: ReadTelemetry never
	// returns (nil, nil), and later calls go to the port again.
	ErrDisconnected = errors.New("device: disconnected")
	// ErrWriteNotPermitted is returned by WriteTorque when open()
	// degraded to read-only due to missing write permission.
	ErrWriteNotPermitted = errors.New("device: write not permitted, opened read-only")
	// ErrUnsupportedPlatform is returned by the enumeration and port
	// layers on operating systems with no HidPort implementation.
	ErrUnsupportedPlatform = errors.New("device: unsupported platform")
)

// Health is a point-in-time snapshot of a device's shadow state,
// published as a single consistent unit via a seqlock so a reader never
// observes, say, a new temperature paired with a stale fault bitfield.
type Health struct {
	TemperatureC   float64
	FaultBits      uint32
	HandsOn        bool
	LastCommAt     time.Time
	CommErrorCount uint64
}

// ReportWriter is the surface a vendor handshake writes feature/output
// reports through (spec §4.2.1); HidPort implements it directly.
type ReportWriter interface {
	WriteFeatureReport(report []byte) error
	WriteOutputReport(report []byte) (int, error)
}

// HidPort abstracts raw HID device I/O behind one interface so the
// device logic above is written once; OS-specific implementations
// (hidraw on Linux) sit underneath (spec §9 design note).
type HidPort interface {
	ReportWriter
	ReadInputReport(buf []byte) (int, error)
	Close() error
}

// Handle is an opened device: a port, its resolved capabilities, the
// vendor handshake that ran at open time, and the shadow state
// read_telemetry publishes.
type Handle struct {
	info      DeviceInfo
	caps      capabilities.DeviceCapabilities
	port      HidPort
	handshake VendorHandshake
	writable  bool

	seq       atomic.Uint32
	torqueBuf [torqueReportLen]byte

	health *seqlock.SeqLock[Health]

	closeOnce sync.Once
	log       logging.Logger
	tracer    tracing.Tracer
}

// OpenOptions configures Open beyond the device identity.
type OpenOptions struct {
	Port          HidPort // required; caller supplies the OS-specific transport
	Capabilities  capabilities.DeviceCapabilities
	Handshake     VendorHandshake // nil disables the vendor init/shutdown sequence
	Writable      bool
	Logger        logging.Logger
	Tracer        tracing.Tracer // nil defaults to a noop tracer
}

// Open runs the vendor init handshake over the supplied port and
// returns a ready Handle. It tolerates missing write permission by
// proceeding read-only: WriteTorque on such a handle returns
// ErrWriteNotPermitted instead of failing Open (spec §4.2 open()).
func Open(ctx context.Context, info DeviceInfo, opts OpenOptions) (*Handle, error) {
	if opts.Port == nil {
		return nil, fmt.Errorf("device: open requires a port")
	}
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = tracing.NewTracer(false)
	}

	ctx, span := tracer.StartSpan(ctx, "device.open")
	span.SetAttribute(tracing.AttrDeviceID, string(info.ID))
	span.SetAttribute(tracing.AttrVendorID, int(info.Identity.Vendor))
	defer span.End()

	h := &Handle{
		info:      info,
		caps:      opts.Capabilities,
		port:      opts.Port,
		handshake: opts.Handshake,
		writable:  opts.Writable,
		health:    seqlock.New(Health{LastCommAt: time.Now()}),
		log:       log,
		tracer:    tracer,
	}

	if h.handshake != nil && h.writable {
		if err := h.handshake.Initialize(h.port); err != nil {
			log.WarnCtx(ctx, "device: vendor initialize failed, continuing without handshake",
				"device", info.ID, "error", err)
		}
	}

	return h, nil
}

// WriteTorque encodes and writes one torque report. It is lock-free and
// allocation-free: the sequence counter is atomic and the wire buffer is
// part of the Handle, reused on every call (spec §4.2.3). A non-blocking
// write that would block is treated as success, never an error.
func (h *Handle) WriteTorque(targetNm float64) error {
	if !h.writable {
		return ErrWriteNotPermitted
	}
	seq := uint16(h.seq.Add(1))
	n, err := EncodeTorqueReport(h.torqueBuf[:], h.caps.MaxTorqueNm, targetNm, seq)
	if err != nil {
		return err
	}
	if _, err := h.port.WriteOutputReport(h.torqueBuf[:n]); err != nil {
		if isWouldBlock(err) {
			return nil
		}
		h.markDisconnected()
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	return nil
}

// ReadTelemetry blocks for one input report and decodes it into shadow
// state, returning the health update it produced. A failed read returns
// a nil Health and an error wrapping ErrDisconnected, and increments
// CommErrorCount.
func (h *Handle) ReadTelemetry(buf []byte) (*Health, error) {
	n, err := h.port.ReadInputReport(buf)
	if err != nil {
		h.markDisconnected()
		return nil, fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	shadow := decodeInputReport(buf[:n])
	shadow.CommErrorCount = h.health.Read().CommErrorCount
	h.health.Write(shadow)
	return &shadow, nil
}

// Health returns the latest published shadow-state snapshot.
func (h *Handle) Health() Health { return h.health.Read() }

func (h *Handle) markDisconnected() {
	cur := h.health.Read()
	cur.CommErrorCount++
	h.health.Write(cur)
}

// Close runs the vendor shutdown sequence (best-effort, logged at debug
// but never propagated) and releases the underlying port.
func (h *Handle) Close(ctx context.Context) error {
	ctx, span := h.tracer.StartSpan(ctx, "device.close")
	span.SetAttribute(tracing.AttrDeviceID, string(h.info.ID))
	defer span.End()

	var closeErr error
	h.closeOnce.Do(func() {
		if h.handshake != nil {
			if err := h.handshake.Shutdown(h.port); err != nil {
				h.log.DebugCtx(ctx, "device: vendor shutdown failed", "device", h.info.ID, "error", err)
			}
		}
		closeErr = h.port.Close()
	})
	return closeErr
}

// The input report layout below is this codebase's own layout for the
// "generic device-telemetry report" input shape spec §4.2 names but
// does not define byte-for-byte: only the torque report (§4.2.2) and
// the two GT7 offsets elsewhere are spec-mandated; everything else here
// is a from-scratch, internally consistent convention.
const (
	offInputFlags  = 1
	offInputTempC  = 2 // int16 LE, tenths of a degree C
	offInputFaults = 4 // uint32 LE
	inputReportLen = 8

	inputFlagHandsOn = 1 << 0
)

func decodeInputReport(buf []byte) Health {
	now := time.Now()
	if len(buf) < inputReportLen {
		return Health{LastCommAt: now}
	}
	flags := buf[offInputFlags]
	tempRaw := int16(uint16(buf[offInputTempC]) | uint16(buf[offInputTempC+1])<<8)
	faults := uint32(buf[offInputFaults]) | uint32(buf[offInputFaults+1])<<8 |
		uint32(buf[offInputFaults+2])<<16 | uint32(buf[offInputFaults+3])<<24
	return Health{
		TemperatureC: float64(tempRaw) / 10,
		FaultBits:    faults,
		HandsOn:      flags&inputFlagHandsOn != 0,
		LastCommAt:   now,
	}
}
