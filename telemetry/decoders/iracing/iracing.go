// Package iracing decodes iRacing's memory-mapped telemetry region
// (spec §4.3.3). Unlike the UDP decoders, the source is a rotating
// buffer of fixed-layout structs shared with the sim process rather
// than a discrete packet; callers are expected to mmap the named
// region themselves (platform-specific) and hand this package the
// resulting byte slice on every read.
package iracing

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/openracing/core/telemetry"
	"github.com/openracing/core/telemetry/decoders"
)

// header field offsets (irsdk_header layout).
const (
	offVer               = 0
	offStatus            = 4
	offTickRate          = 8
	offSessionInfoUpdate = 12
	offSessionInfoLen    = 16
	offSessionInfoOffset = 20
	offNumVars           = 24
	offVarHeaderOffset   = 28
	offNumBuf            = 32
	offBufLen            = 36
	offVarBuf0           = 48
	varBufSlotSize       = 16 // tickCount int32 + bufOffset int32 + 8 bytes pad
	headerSize           = 112
	maxBufs              = 4
)

const statusConnected int32 = 1

// maxStableReadAttempts bounds the retry loop used to read a
// consistent snapshot out of a buffer the sim is concurrently writing.
const maxStableReadAttempts = 3

// varHeaderEntrySize is sizeof(irsdk_varHeader): type, offset, count,
// countAsTime+pad, name[32], desc[64], unit[32].
const varHeaderEntrySize = 4 + 4 + 4 + 4 + 32 + 64 + 32

const (
	varTypeChar     int32 = 0
	varTypeBool     int32 = 1
	varTypeInt      int32 = 2
	varTypeBitField int32 = 3
	varTypeFloat    int32 = 4
	varTypeDouble   int32 = 5
)

type varHeader struct {
	typ    int32
	offset int32
	count  int32
	name   string
}

// ErrNotConnected is returned when the shared memory region reports
// the sim is not live (status bit clear) — a normal, expected state
// while the sim is between sessions, not a malformed-packet error.
var ErrNotConnected = decoders.NewDecodeError(decoders.KindMalformedPacket, "iracing: sim not connected")

// Decoder implements decoders.Decoder over the iRacing shared memory
// layout. It caches the parsed variable-header table keyed by the
// region's sessionInfoUpdate counter, since the variable layout is
// static for the lifetime of a connection and re-parsing it on every
// tick would be wasted work.
type Decoder struct {
	mu          sync.Mutex
	cachedAt    int32
	cachedIndex map[string]varHeader
}

func New() *Decoder { return &Decoder{} }

func (d *Decoder) ExpectedUpdateRate() time.Duration { return 1000.0 / 60 * time.Millisecond }

// Normalize reads one stable snapshot out of mem — the full
// memory-mapped telemetry region, header and variable table included —
// and maps it onto a Record.
func (d *Decoder) Normalize(mem []byte) (*telemetry.Record, error) {
	if len(mem) < headerSize {
		return nil, decoders.NewDecodeError(decoders.KindTruncatedBuffer, "region shorter than header")
	}
	status := int32(binary.LittleEndian.Uint32(mem[offStatus:]))
	if status&statusConnected == 0 {
		return nil, ErrNotConnected
	}

	index, err := d.varIndex(mem)
	if err != nil {
		return nil, err
	}

	buf, err := stableRead(mem)
	if err != nil {
		return nil, err
	}

	rec := telemetry.NewRecord()
	rec.SpeedMS = telemetry.NonNegativeFinite(firstFloat(buf, index, "Speed"))
	rec.RPM = telemetry.NonNegativeFinite(firstFloat(buf, index, "RPM"))
	rec.Gear = telemetry.ClampGear(int(firstFloat(buf, index, "Gear")))
	rec.Throttle = telemetry.ClampUnit(firstFloat(buf, index, "Throttle"))
	rec.Brake = telemetry.ClampUnit(firstFloat(buf, index, "Brake"))

	assignFFBScalar(rec, buf, index)
	assignSlipRatio(rec, buf, index)

	return rec, nil
}

// assignFFBScalar implements the three-way preference order from the
// specification: an explicit percent-of-sign field first, then
// torque/max_force when both are available, else the raw torque
// reading clamped to [-1,1] tagged as provenance-unknown.
func assignFFBScalar(rec *telemetry.Record, buf []byte, index map[string]varHeader) {
	if v, ok := lookupFloat(buf, index, []string{"SteeringWheelPctTorque", "SteeringWheelPctTorqueSign"}); ok {
		s := telemetry.ClampSigned(v)
		rec.FFBScalar = &s
		rec.FFBProvenance = telemetry.FFBPctTorqueSign
		return
	}
	torque, hasTorque := lookupFloat(buf, index, []string{"SteeringWheelTorque"})
	if !hasTorque {
		return
	}
	if maxForce, hasMax := lookupFloat(buf, index, []string{"SteeringWheelMaxForceNm"}); hasMax && maxForce != 0 {
		s := telemetry.ClampSigned(torque / maxForce)
		rec.FFBScalar = &s
		rec.FFBProvenance = telemetry.FFBMaxForceNm
		return
	}
	s := telemetry.ClampSigned(torque)
	rec.FFBScalar = &s
	rec.FFBProvenance = telemetry.FFBUnknown
}

// nominalTyreRadiusM and minSpeedFloor are the constants the
// specification names for the wheel-rotational-speed slip fallback.
const (
	nominalTyreRadiusM = 0.33
	minSpeedFloor      = 0.05
)

// assignSlipRatio prefers an explicit per-wheel slip variable when the
// sim exposes one, averaging whichever rear wheels are present; failing
// that it derives slip from rear wheel rotational speed versus car
// ground speed using a nominal tyre radius.
func assignSlipRatio(rec *telemetry.Record, buf []byte, index map[string]varHeader) {
	lrExplicit, lrOK := lookupFloat(buf, index, []string{"LRslipRatio", "LRslipAngle"})
	rrExplicit, rrOK := lookupFloat(buf, index, []string{"RRslipRatio", "RRslipAngle"})
	if lrOK || rrOK {
		sum, n := 0.0, 0.0
		if lrOK {
			sum += abs(lrExplicit)
			n++
		}
		if rrOK {
			sum += abs(rrExplicit)
			n++
		}
		s := telemetry.ClampUnit(sum / n)
		rec.SlipRatio = &s
		rec.SlipProvenance = telemetry.SlipExplicit
		return
	}

	if rec.SpeedMS < minSpeedFloor {
		return
	}
	lr, lrOK := lookupFloat(buf, index, []string{"LRspeed", "LRwheelSpeed"})
	rr, rrOK := lookupFloat(buf, index, []string{"RRspeed", "RRwheelSpeed"})
	if !lrOK || !rrOK {
		return
	}
	wheelSpeed := (abs(lr) + abs(rr)) / 2 * nominalTyreRadiusM
	slip := telemetry.ClampUnit(abs((wheelSpeed - rec.SpeedMS) / rec.SpeedMS))
	rec.SlipRatio = &slip
	rec.SlipProvenance = telemetry.SlipDerivedWheelRPS
}

func (d *Decoder) varIndex(mem []byte) (map[string]varHeader, error) {
	sessionInfoUpdate := int32(binary.LittleEndian.Uint32(mem[offSessionInfoUpdate:]))

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cachedIndex != nil && d.cachedAt == sessionInfoUpdate {
		return d.cachedIndex, nil
	}

	numVars := int(int32(binary.LittleEndian.Uint32(mem[offNumVars:])))
	tableOffset := int(int32(binary.LittleEndian.Uint32(mem[offVarHeaderOffset:])))
	if numVars < 0 || tableOffset < 0 {
		return nil, decoders.NewDecodeError(decoders.KindMalformedPacket, "negative var table geometry")
	}
	need := tableOffset + numVars*varHeaderEntrySize
	if need > len(mem) {
		return nil, decoders.NewDecodeError(decoders.KindTruncatedBuffer, "var header table exceeds region")
	}

	index := make(map[string]varHeader, numVars)
	for i := 0; i < numVars; i++ {
		entry := mem[tableOffset+i*varHeaderEntrySize:]
		vh := varHeader{
			typ:    int32(binary.LittleEndian.Uint32(entry[0:])),
			offset: int32(binary.LittleEndian.Uint32(entry[4:])),
			count:  int32(binary.LittleEndian.Uint32(entry[8:])),
			name:   readCString(entry[16:48]),
		}
		index[vh.name] = vh
	}
	d.cachedIndex = index
	d.cachedAt = sessionInfoUpdate
	return index, nil
}

// stableRead picks the freshest of the sim's rotating buffers and
// copies it out, retrying if the tick count changes mid-copy — the
// sim may be overwriting that buffer concurrently (spec §4.3.3).
func stableRead(mem []byte) ([]byte, error) {
	numBuf := int(int32(binary.LittleEndian.Uint32(mem[offNumBuf:])))
	bufLen := int(int32(binary.LittleEndian.Uint32(mem[offBufLen:])))
	if numBuf <= 0 || numBuf > maxBufs || bufLen <= 0 {
		return nil, decoders.NewDecodeError(decoders.KindMalformedPacket, "invalid buffer geometry")
	}

	bestSlot := -1
	var bestTick int32 = -1
	for i := 0; i < numBuf; i++ {
		slot := mem[offVarBuf0+i*varBufSlotSize:]
		tick := int32(binary.LittleEndian.Uint32(slot[0:]))
		if tick > bestTick {
			bestTick = tick
			bestSlot = i
		}
	}
	if bestSlot < 0 {
		return nil, decoders.NewDecodeError(decoders.KindMalformedPacket, "no readable buffer slot")
	}
	slot := mem[offVarBuf0+bestSlot*varBufSlotSize:]
	bufOffset := int(int32(binary.LittleEndian.Uint32(slot[4:])))
	if bufOffset < 0 || bufOffset+bufLen > len(mem) {
		return nil, decoders.NewDecodeError(decoders.KindTruncatedBuffer, "buffer slot exceeds region")
	}

	for attempt := 0; attempt < maxStableReadAttempts; attempt++ {
		before := int32(binary.LittleEndian.Uint32(slot[0:]))
		out := make([]byte, bufLen)
		copy(out, mem[bufOffset:bufOffset+bufLen])
		after := int32(binary.LittleEndian.Uint32(slot[0:]))
		if before == after {
			return out, nil
		}
	}
	return nil, decoders.NewDecodeError(decoders.KindMalformedPacket, "buffer did not stabilize within retry budget")
}

func readCString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func readVarFloat(buf []byte, vh varHeader) (float64, bool) {
	if int(vh.offset) < 0 || int(vh.offset) >= len(buf) {
		return 0, false
	}
	b := buf[vh.offset:]
	switch vh.typ {
	case varTypeChar, varTypeBool:
		if len(b) < 1 {
			return 0, false
		}
		if b[0] != 0 {
			return 1, true
		}
		return 0, true
	case varTypeInt, varTypeBitField:
		if len(b) < 4 {
			return 0, false
		}
		return float64(int32(binary.LittleEndian.Uint32(b))), true
	case varTypeFloat:
		if len(b) < 4 {
			return 0, false
		}
		bits := binary.LittleEndian.Uint32(b)
		return float64(math.Float32frombits(bits)), true
	case varTypeDouble:
		if len(b) < 8 {
			return 0, false
		}
		bits := binary.LittleEndian.Uint64(b)
		return math.Float64frombits(bits), true
	default:
		return 0, false
	}
}

func firstFloat(buf []byte, index map[string]varHeader, name string) float64 {
	v, _ := lookupFloat(buf, index, []string{name})
	return v
}

func lookupFloat(buf []byte, index map[string]varHeader, names []string) (float64, bool) {
	for _, n := range names {
		if vh, ok := index[n]; ok {
			if v, ok := readVarFloat(buf, vh); ok {
				return v, true
			}
		}
	}
	return 0, false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
