// Package gt7 decodes the Salsa20-encrypted UDP telemetry packets
// emitted by Gran Turismo 7 (spec §4.3.2). Every packet is a single,
// self-contained frame — unlike the F1 decoder there is no
// cross-packet state machine, only a keystream to undo and a magic
// number to check.
package gt7

import (
	"encoding/binary"
	"math"
	"time"

	"golang.org/x/crypto/salsa20"

	"github.com/openracing/core/telemetry"
	"github.com/openracing/core/telemetry/decoders"
)

// gt7KeySeed is truncated to 32 bytes to form the fixed Salsa20 key
// the game uses for every session; it is not a per-session secret.
const gt7KeySeed = "Simulator Interface Packet GT7 ver 0.0"

// valid plaintext/ciphertext packet sizes and the xor_key each one
// uses to derive the second half of the nonce.
const (
	sizeA = 296
	sizeB = 316
	sizeC = 344
)

var xorKeyBySize = map[int]uint32{
	sizeA: 0xDEAD_BEAF,
	sizeB: 0xDEAD_BEEF,
	sizeC: 0x55FA_BB4F,
}

// gt7Magic is the constant the first four decrypted bytes must equal,
// read little-endian ("0S7G" in memory).
const gt7Magic uint32 = 0x4737_5330

// field offsets into the decrypted packet, verified against Nenkai/
// PDTools' SimulatorPacket.Read() sequential layout. All multi-byte
// fields are little-endian.
const (
	offMagic          = 0x00
	offIVField        = 0x40
	offEngineRPM      = 0x3C
	offFuelLevel      = 0x44
	offFuelCapacity   = 0x48
	offSpeedMS        = 0x4C
	offWaterTempC     = 0x58
	offTireTempFL     = 0x60
	offTireTempFR     = 0x64
	offTireTempRL     = 0x68
	offTireTempRR     = 0x6C
	offLapCount       = 0x74 // u16
	offBestLapMs      = 0x78
	offLastLapMs      = 0x7C
	offFlags          = 0x8E // u16, SimulatorFlags
	offGearByte       = 0x90 // low nibble = current, high nibble = suggested
	offThrottle       = 0x91
	offBrake          = 0x92
	offCarCode        = 0x124
	// extended fields, present only in the longer packet variants.
	offWheelRotation  = 0x128 // radians, size >= 316
	offLateralG       = 0x130 // sway, size >= 316
	offVerticalG      = 0x134 // heave, size >= 316
	offLongitudinalG  = 0x138 // surge, size >= 316
	offCarTypeByte3   = 0x13E // 4 = electric, size == 344
	offEnergyRecovery = 0x150 // size == 344
)

// flag bits within the 16-bit SimulatorFlags field at offFlags.
const (
	flagPaused   uint16 = 1 << 1
	flagRevLimit uint16 = 1 << 5
	flagASM      uint16 = 1 << 10
	flagTCS      uint16 = 1 << 11
)

// maxGearNibble is the highest gear value accepted from the low
// nibble of the gear byte; anything above it is mapped to neutral.
const maxGearNibble = 8

func gt7Key() [32]byte {
	var key [32]byte
	copy(key[:], gt7KeySeed)
	return key
}

// Decrypt reverses the Salsa20 keystream PD applies before sending a
// packet and verifies the magic number. It never panics: any input,
// however short or adversarial, yields a classified error instead.
func Decrypt(packet []byte) ([]byte, error) {
	xorKey, ok := xorKeyBySize[len(packet)]
	if !ok {
		return nil, decoders.NewDecodeError(decoders.KindWrongFormat, "packet length is not 296, 316, or 344")
	}
	if len(packet) < offIVField+4 {
		return nil, decoders.NewDecodeError(decoders.KindTruncatedBuffer, "packet shorter than IV field")
	}

	oiv := packet[offIVField : offIVField+4]
	iv1 := binary.LittleEndian.Uint32(oiv)
	iv2 := iv1 ^ xorKey

	var nonce [8]byte
	binary.LittleEndian.PutUint32(nonce[0:4], iv2)
	copy(nonce[4:8], oiv)

	key := gt7Key()
	out := make([]byte, len(packet))
	salsa20.XORKeyStream(out, packet, nonce[:], &key)

	if binary.LittleEndian.Uint32(out[offMagic:offMagic+4]) != gt7Magic {
		return nil, decoders.NewDecodeError(decoders.KindMagicMismatch, "decrypted magic mismatch")
	}
	return out, nil
}

// HeartbeatPayload returns the single byte that must be sent back to
// the game's origin address every 100ms on a separate port to keep
// telemetry flowing, matched to the size of the stream being received.
func HeartbeatPayload(packetSize int) []byte {
	switch packetSize {
	case sizeA:
		return []byte{'A'}
	case sizeB:
		return []byte{'B'}
	case sizeC:
		return []byte{'~'}
	default:
		return []byte{'A'}
	}
}

// Decoder implements decoders.Decoder for Gran Turismo 7. It carries no
// mutable state: every packet decodes independently.
type Decoder struct{}

func New() *Decoder { return &Decoder{} }

func (d *Decoder) ExpectedUpdateRate() time.Duration { return 1000.0 / 60 * time.Millisecond }

// Normalize implements decoders.Decoder. It decrypts the packet, then
// maps the fixed field layout onto Record, applying every
// defensive-normalization rule the specification calls out (non-finite
// floats zeroed, fractions clamped, sentinel lap times zeroed).
func (d *Decoder) Normalize(packet []byte) (*telemetry.Record, error) {
	buf, err := Decrypt(packet)
	if err != nil {
		return nil, err
	}

	rec := telemetry.NewRecord()
	rec.SpeedMS = telemetry.NonNegativeFinite(float64(readFloat32(buf, offSpeedMS)))
	rec.RPM = telemetry.NonNegativeFinite(float64(readFloat32(buf, offEngineRPM)))
	rec.Throttle = telemetry.ClampUnit(float64(buf[offThrottle]) / 255.0)
	rec.Brake = telemetry.ClampUnit(float64(buf[offBrake]) / 255.0)

	gearNibble := int(buf[offGearByte] & 0x0F)
	if gearNibble > maxGearNibble {
		gearNibble = 0
	}
	rec.Gear = int8(gearNibble)

	flags := binary.LittleEndian.Uint16(buf[offFlags:])
	rec.Flags.Set(telemetry.FlagSessionPaused, flags&flagPaused != 0)
	rec.Flags.Set(telemetry.FlagEngineLimiter, flags&flagRevLimit != 0)
	rec.Flags.Set(telemetry.FlagTractionControl, flags&flagTCS != 0)
	rec.Flags.Set(telemetry.FlagABSActive, flags&flagASM != 0)

	rec.SetInt("lap_count", int64(binary.LittleEndian.Uint16(buf[offLapCount:])))
	rec.SetInt("gt7_car_code", int64(readInt32(buf, offCarCode)))
	rec.SetFloat("water_temp_c", telemetry.Finite(float64(readFloat32(buf, offWaterTempC))))
	rec.SetFloat("tire_temp_fl", telemetry.NonNegativeFinite(float64(readFloat32(buf, offTireTempFL))))
	rec.SetFloat("tire_temp_fr", telemetry.NonNegativeFinite(float64(readFloat32(buf, offTireTempFR))))
	rec.SetFloat("tire_temp_rl", telemetry.NonNegativeFinite(float64(readFloat32(buf, offTireTempRL))))
	rec.SetFloat("tire_temp_rr", telemetry.NonNegativeFinite(float64(readFloat32(buf, offTireTempRR))))

	fuelLevel := telemetry.Finite(float64(readFloat32(buf, offFuelLevel)))
	fuelCapacity := telemetry.Finite(float64(readFloat32(buf, offFuelCapacity)))
	fuelPercent := 0.0
	if fuelCapacity != 0 {
		fuelPercent = telemetry.ClampUnit(fuelLevel / fuelCapacity)
	}
	rec.SetFloat("fuel_percent", fuelPercent)

	rec.SetFloat("best_lap_s", lapTimeSeconds(readInt32(buf, offBestLapMs)))
	rec.SetFloat("last_lap_s", lapTimeSeconds(readInt32(buf, offLastLapMs)))

	if len(buf) >= offLongitudinalG+4 {
		rec.SetFloat("wheel_rotation_rad", telemetry.Finite(float64(readFloat32(buf, offWheelRotation))))
		rec.SetFloat("lateral_g", telemetry.Finite(float64(readFloat32(buf, offLateralG))))
		rec.SetFloat("vertical_g", telemetry.Finite(float64(readFloat32(buf, offVerticalG))))
		rec.SetFloat("longitudinal_g", telemetry.Finite(float64(readFloat32(buf, offLongitudinalG))))
	}
	if len(buf) >= offEnergyRecovery+4 {
		rec.SetInt("gt7_car_type", int64(buf[offCarTypeByte3]))
		rec.SetFloat("gt7_energy_recovery", telemetry.Finite(float64(readFloat32(buf, offEnergyRecovery))))
	}

	return rec, nil
}

// lapTimeSeconds converts a millisecond lap time to seconds, treating
// the game's "no time recorded" sentinel (-1) as 0.0.
func lapTimeSeconds(ms int32) float64 {
	if ms < 0 {
		return 0.0
	}
	return float64(ms) / 1000.0
}

func readFloat32(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func readInt32(b []byte, off int) int32 {
	return int32(binary.LittleEndian.Uint32(b[off:]))
}
