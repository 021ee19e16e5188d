// Package f125 decodes the little-endian UDP telemetry packets emitted
// by the 2025-model-year F1 game (spec §4.3.1). The wire format is a
// 29-byte header followed by a packet-id-specific payload; only three
// packet IDs carry data the normalized record needs (Session,
// CarTelemetry, CarStatus) — everything else is ignored.
package f125

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/openracing/core/telemetry"
	"github.com/openracing/core/telemetry/decoders"
)

const (
	headerLen        = 29
	expectedFormat   = 2025
	maxCars          = 22
	carTelemetryLen  = 60
	carStatusLen     = 55
	packetIDSession  = 1
	packetIDTelem    = 6
	packetIDStatus   = 7
)

// header field offsets, matching the real F1 packet header layout.
const (
	offPacketFormat = 0
	offGameYear     = 2
	offPacketID     = 6
	offSessionUID   = 7
	offSessionTime  = 15
	offFrameID      = 19
	offOverallFrame = 23
	offPlayerIdx    = 27
)

// per-car CarTelemetryData offsets (relative to the car's 60-byte slot).
const (
	tOffSpeed    = 0  // u16 km/h
	tOffThrottle = 2  // f32 0..1
	tOffSteer    = 6  // f32 -1..1
	tOffBrake    = 10 // f32 0..1
	tOffClutch   = 14 // u8
	tOffGear     = 15 // i8 -1..8
	tOffRPM      = 16 // u16
	tOffDRS      = 18 // u8
	// tyre pressures, brake/tyre temperatures occupy 22..59; they are
	// not decoded into the record.
	tOffTyrePressure = 40 // f32[4]
)

// per-car CarStatusData offsets (relative to the car's 55-byte slot).
const (
	sOffPitLimiter  = 4  // u8
	sOffFuelInTank  = 5  // f32
	sOffMaxRPM      = 17 // u16
	sOffDRSAllowed  = 22 // u8
	sOffTyreComp    = 26 // u8 visual compound
	sOffErsStore    = 37 // f32 joules
)

const maxERSJoules = 4_000_000 // 4 MJ clamp per spec

var trackNames = map[int8]string{
	0: "Melbourne", 1: "Paul Ricard", 2: "Shanghai", 3: "Sakhir (Bahrain)",
	4: "Catalunya", 5: "Monaco", 6: "Montreal", 7: "Silverstone",
	9: "Hungaroring", 10: "Spa", 11: "Monza", 12: "Singapore",
	13: "Suzuka", 14: "Abu Dhabi", 15: "Texas (COTA)", 16: "Brazil (Interlagos)",
	17: "Austria (Red Bull Ring)", 18: "Sochi", 19: "Mexico", 20: "Baku",
}

func trackName(id int8) string {
	if name, ok := trackNames[id]; ok {
		return name
	}
	return "Unknown"
}

type sessionSnapshot struct {
	trackID          int8
	sessionType       uint8
	trackTemperature int8
	airTemperature   int8
}

type carTelemetrySnapshot struct {
	speedKmh uint16
	throttle float32
	steer    float32
	brake    float32
	gear     int8
	rpm      uint16
	drs      uint8
}

type carStatusSnapshot struct {
	pitLimiter uint8
	fuelInTank float32
	maxRPM     uint16
	drsAllowed uint8
	ersStore   float32
}

// Options configures a Decoder. HeartbeatTimeout defaults to 2s.
type Options struct {
	HeartbeatTimeout time.Duration
}

// Decoder implements decoders.Decoder for the F1-25 multi-packet state
// machine. It is safe for concurrent use; ProcessPacket and Normalize
// share the same internal lock.
type Decoder struct {
	mu               sync.Mutex
	lastTelemetry    *carTelemetrySnapshot
	lastStatus       *carStatusSnapshot
	lastSession      *sessionSnapshot
	lastPacketAt     time.Time
	heartbeatTimeout time.Duration
}

// New constructs an F1-25 decoder.
func New(opts Options) *Decoder {
	hb := opts.HeartbeatTimeout
	if hb <= 0 {
		hb = 2 * time.Second
	}
	return &Decoder{heartbeatTimeout: hb}
}

func (d *Decoder) ExpectedUpdateRate() time.Duration { return 1000 / 60 * time.Millisecond }

// Normalize implements decoders.Decoder. It is equivalent to
// ProcessPacket; both names are kept because the specification refers
// to the state-machine entry point as process_packet while the shared
// contract calls it Normalize.
func (d *Decoder) Normalize(buf []byte) (*telemetry.Record, error) {
	return d.ProcessPacket(buf)
}

// Alive reports whether a packet has arrived within the configured
// heartbeat window (spec §4.3.1 "data freshness" heuristic).
func (d *Decoder) Alive(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastPacketAt.IsZero() {
		return false
	}
	return now.Sub(d.lastPacketAt) <= d.heartbeatTimeout
}

// ProcessPacket consumes one UDP datagram. It returns (nil, nil) when
// the packet was accepted but did not (yet) produce an emission —
// either because it was a Session packet or another ignored packet id,
// or because no telemetry or no status packet has been seen yet. Once
// both have been seen, every later telemetry or status packet emits,
// combined with the last packet of the other kind.
func (d *Decoder) ProcessPacket(buf []byte) (*telemetry.Record, error) {
	if len(buf) < headerLen {
		return nil, decoders.NewDecodeError(decoders.KindTruncatedBuffer, "buffer shorter than header")
	}
	format := binary.LittleEndian.Uint16(buf[offPacketFormat:])
	if format != expectedFormat {
		return nil, decoders.NewDecodeError(decoders.KindWrongFormat, "unexpected packet_format")
	}
	packetID := buf[offPacketID]
	playerIdx := buf[offPlayerIdx]
	if playerIdx >= maxCars {
		return nil, decoders.NewDecodeError(decoders.KindOutOfRangeIndex, "player_car_index out of range")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastPacketAt = time.Now()

	switch packetID {
	case packetIDSession:
		snap, err := parseSession(buf[headerLen:])
		if err != nil {
			return nil, err
		}
		d.lastSession = snap
		return nil, nil
	case packetIDTelem:
		snap, err := parseCarTelemetry(buf[headerLen:], int(playerIdx))
		if err != nil {
			return nil, err
		}
		d.lastTelemetry = snap
		return d.maybeEmitLocked(), nil
	case packetIDStatus:
		snap, err := parseCarStatus(buf[headerLen:], int(playerIdx))
		if err != nil {
			return nil, err
		}
		d.lastStatus = snap
		return d.maybeEmitLocked(), nil
	default:
		return nil, nil
	}
}

func (d *Decoder) maybeEmitLocked() *telemetry.Record {
	if d.lastTelemetry == nil || d.lastStatus == nil {
		return nil
	}
	t := d.lastTelemetry
	s := d.lastStatus
	rec := telemetry.NewRecord()
	rec.SpeedMS = telemetry.NonNegativeFinite(float64(t.speedKmh) / 3.6)
	rec.RPM = telemetry.NonNegativeFinite(float64(t.rpm))
	rec.Gear = telemetry.ClampGear(int(t.gear))
	rec.Throttle = telemetry.ClampUnit(float64(t.throttle))
	rec.Brake = telemetry.ClampUnit(float64(t.brake))
	rec.Steering = telemetry.ClampSigned(float64(t.steer))

	rec.Flags.Set(telemetry.FlagDRSActive, t.drs != 0)
	rec.Flags.Set(telemetry.FlagDRSAvailable, s.drsAllowed != 0)
	rec.Flags.Set(telemetry.FlagPitLimiter, s.pitLimiter != 0)

	rec.SetFloat("fuel_in_tank", float64(s.fuelInTank))
	rec.SetInt("max_rpm", int64(s.maxRPM))
	ersFraction := 0.0
	ers := float64(s.ersStore)
	if ers > maxERSJoules {
		ers = maxERSJoules
	}
	if ers < 0 {
		ers = 0
	}
	if maxERSJoules > 0 {
		ersFraction = ers / maxERSJoules
	}
	rec.SetFloat("ers_store_fraction", ersFraction)

	if d.lastSession != nil {
		rec.TrackID = trackName(d.lastSession.trackID)
		rec.SetInt("session_type", int64(d.lastSession.sessionType))
		rec.SetFloat("track_temperature_c", float64(d.lastSession.trackTemperature))
		rec.SetFloat("air_temperature_c", float64(d.lastSession.airTemperature))
	}
	return rec
}

func parseSession(payload []byte) (*sessionSnapshot, error) {
	if len(payload) < 8 {
		return nil, decoders.NewDecodeError(decoders.KindTruncatedBuffer, "session payload too short")
	}
	return &sessionSnapshot{
		trackTemperature: int8(payload[1]),
		airTemperature:   int8(payload[2]),
		sessionType:       payload[6],
		trackID:          int8(payload[7]),
	}, nil
}

func parseCarTelemetry(payload []byte, playerIdx int) (*carTelemetrySnapshot, error) {
	need := (playerIdx + 1) * carTelemetryLen
	if len(payload) < need {
		return nil, decoders.NewDecodeError(decoders.KindTruncatedBuffer, "car telemetry payload too short")
	}
	car := payload[playerIdx*carTelemetryLen : (playerIdx+1)*carTelemetryLen]
	return &carTelemetrySnapshot{
		speedKmh: binary.LittleEndian.Uint16(car[tOffSpeed:]),
		throttle: readFloat32LE(car, tOffThrottle),
		steer:    readFloat32LE(car, tOffSteer),
		brake:    readFloat32LE(car, tOffBrake),
		gear:     int8(car[tOffGear]),
		rpm:      binary.LittleEndian.Uint16(car[tOffRPM:]),
		drs:      car[tOffDRS],
	}, nil
}

func parseCarStatus(payload []byte, playerIdx int) (*carStatusSnapshot, error) {
	need := (playerIdx + 1) * carStatusLen
	if len(payload) < need {
		return nil, decoders.NewDecodeError(decoders.KindTruncatedBuffer, "car status payload too short")
	}
	car := payload[playerIdx*carStatusLen : (playerIdx+1)*carStatusLen]
	return &carStatusSnapshot{
		pitLimiter: car[sOffPitLimiter],
		fuelInTank: readFloat32LE(car, sOffFuelInTank),
		maxRPM:     binary.LittleEndian.Uint16(car[sOffMaxRPM:]),
		drsAllowed: car[sOffDRSAllowed],
		ersStore:   readFloat32LE(car, sOffErsStore),
	}, nil
}

func readFloat32LE(b []byte, off int) float32 {
	bits := binary.LittleEndian.Uint32(b[off:])
	return math.Float32frombits(bits)
}
