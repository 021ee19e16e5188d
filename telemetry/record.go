// Package telemetry defines the normalized telemetry record every game
// decoder converges on (spec component D), plus the small numeric
// helpers the decoders share to keep out-of-range source bytes from
// ever reaching a caller.
package telemetry

import "math"

// Flags is a bitset of session/car state flags. Values mirror the
// bitset named in the specification; unused bits are reserved for
// future flags without breaking the wire shape of Record.
type Flags uint32

const (
	FlagPitLimiter Flags = 1 << iota
	FlagInPits
	FlagDRSActive
	FlagDRSAvailable
	FlagTractionControl
	FlagABSActive
	FlagERSAvailable
	FlagYellowFlag
	FlagRedFlag
	FlagBlueFlag
	FlagGreenFlag
	FlagCheckeredFlag
	FlagEngineLimiter
	FlagSessionPaused
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

func (f *Flags) Set(bit Flags, on bool) {
	if on {
		*f |= bit
	} else {
		*f &^= bit
	}
}

// SlipProvenance records how SlipRatio was derived.
type SlipProvenance string

const (
	SlipExplicit        SlipProvenance = "explicit"
	SlipDerivedWheelRPS SlipProvenance = "derived_wheel_rps"
)

// FFBProvenance records how FFBScalar was derived (iRacing-style sources;
// other decoders that don't emit ffb_scalar leave this empty).
type FFBProvenance string

const (
	FFBPctTorqueSign FFBProvenance = "pct_torque_sign"
	FFBMaxForceNm    FFBProvenance = "max_force_nm"
	FFBUnknown       FFBProvenance = "unknown"
)

// ValueKind discriminates the payload carried by a Value.
type ValueKind uint8

const (
	ValueFloat ValueKind = iota
	ValueInt
	ValueString
	ValueBool
)

// Value is an open-ended extension slot for per-game fields that don't
// have a place in the fixed Record schema (e.g. gt7_car_type).
type Value struct {
	Kind ValueKind
	F    float64
	I    int64
	S    string
	B    bool
}

func Float(v float64) Value { return Value{Kind: ValueFloat, F: v} }
func Int(v int64) Value     { return Value{Kind: ValueInt, I: v} }
func Str(v string) Value    { return Value{Kind: ValueString, S: v} }
func Bool(v bool) Value     { return Value{Kind: ValueBool, B: v} }

// Record is the single normalized telemetry record every decoder
// produces. Mandatory fields always obey their declared ranges, even
// when the source packet did not.
type Record struct {
	SpeedMS  float64 // >= 0
	RPM      float64 // >= 0, finite
	Gear     int8    // -1..8
	Throttle float64 // 0..1
	Brake    float64 // 0..1
	Steering float64 // -1..1
	Flags    Flags

	FFBScalar     *float64 // -1..1
	FFBProvenance FFBProvenance

	SlipRatio      *float64 // 0..1
	SlipProvenance SlipProvenance

	CarID   string
	TrackID string

	Extended map[string]Value
}

// NewRecord returns a Record with an initialized Extended map.
func NewRecord() *Record {
	return &Record{Extended: make(map[string]Value)}
}

func (r *Record) setExtended(key string, v Value) {
	if r.Extended == nil {
		r.Extended = make(map[string]Value)
	}
	r.Extended[key] = v
}

func (r *Record) SetFloat(key string, v float64) { r.setExtended(key, Float(v)) }
func (r *Record) SetInt(key string, v int64)      { r.setExtended(key, Int(v)) }
func (r *Record) SetString(key string, v string)  { r.setExtended(key, Str(v)) }
func (r *Record) SetBool(key string, v bool)      { r.setExtended(key, Bool(v)) }

// Clamp returns v bounded to [lo, hi]. Non-finite input maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampUnit returns v bounded to [0,1].
func ClampUnit(v float64) float64 { return Clamp(v, 0, 1) }

// ClampSigned returns v bounded to [-1,1].
func ClampSigned(v float64) float64 { return Clamp(v, -1, 1) }

// NonNegativeFinite returns v if it is finite and >= 0, else 0.
func NonNegativeFinite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Finite returns v if finite, else 0.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ClampGear maps an arbitrary gear value into the documented -1..8 range,
// treating out-of-range values as neutral (0) per the decoders that
// document that convention (see SPEC_FULL.md / DESIGN.md for the
// per-game convention actually observed).
func ClampGear(g int) int8 {
	if g < -1 || g > 8 {
		return 0
	}
	return int8(g)
}
