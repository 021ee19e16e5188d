package f125

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openracing/core/telemetry/decoders"
)

func putFloat32(b []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v))
}

func buildHeader(packetID uint8, playerIdx uint8) []byte {
	h := make([]byte, headerLen)
	binary.LittleEndian.PutUint16(h[offPacketFormat:], expectedFormat)
	h[offPacketID] = packetID
	h[offPlayerIdx] = playerIdx
	return h
}

func buildSessionPacket(trackID int8, sessionType uint8, trackTemp, airTemp int8) []byte {
	buf := append(buildHeader(packetIDSession, 0), make([]byte, 8)...)
	payload := buf[headerLen:]
	payload[1] = byte(trackTemp)
	payload[2] = byte(airTemp)
	payload[6] = sessionType
	payload[7] = byte(trackID)
	return buf
}

func buildTelemetryPacket(playerIdx uint8, speedKmh uint16, throttle, steer, brake float32, gear int8, rpm uint16, drs uint8) []byte {
	buf := append(buildHeader(packetIDTelem, playerIdx), make([]byte, maxCars*carTelemetryLen)...)
	car := buf[headerLen+int(playerIdx)*carTelemetryLen:]
	binary.LittleEndian.PutUint16(car[tOffSpeed:], speedKmh)
	putFloat32(car, tOffThrottle, throttle)
	putFloat32(car, tOffSteer, steer)
	putFloat32(car, tOffBrake, brake)
	car[tOffGear] = byte(gear)
	binary.LittleEndian.PutUint16(car[tOffRPM:], rpm)
	car[tOffDRS] = drs
	return buf
}

func buildStatusPacket(playerIdx uint8, pitLimiter uint8, fuel float32, maxRPM uint16, drsAllowed uint8, ers float32) []byte {
	buf := append(buildHeader(packetIDStatus, playerIdx), make([]byte, maxCars*carStatusLen)...)
	car := buf[headerLen+int(playerIdx)*carStatusLen:]
	car[sOffPitLimiter] = pitLimiter
	putFloat32(car, sOffFuelInTank, fuel)
	binary.LittleEndian.PutUint16(car[sOffMaxRPM:], maxRPM)
	car[sOffDRSAllowed] = drsAllowed
	putFloat32(car, sOffErsStore, ers)
	return buf
}

func TestF125EmitsOnlyWhenTelemetryAndStatusBothArrived(t *testing.T) {
	d := New(Options{})

	rec, err := d.ProcessPacket(buildSessionPacket(10, 1, 28, 22))
	require.NoError(t, err)
	require.Nil(t, rec, "session packet alone must not emit")

	rec, err = d.ProcessPacket(buildTelemetryPacket(0, 288, 1.0, 0.1, 0.0, 7, 11800, 1))
	require.NoError(t, err)
	require.Nil(t, rec, "telemetry without a prior status must not emit yet")

	rec, err = d.ProcessPacket(buildStatusPacket(0, 0, 42.5, 15000, 1, 2_000_000))
	require.NoError(t, err)
	require.NotNil(t, rec, "status completes the pair and must emit")

	require.InDelta(t, 288.0/3.6, rec.SpeedMS, 1e-6)
	require.Equal(t, int8(7), rec.Gear)
	require.Equal(t, "Spa", rec.TrackID)
	require.True(t, rec.Flags.Has(1<<2)) // FlagDRSActive bit position, see record.go
	require.InDelta(t, 0.5, rec.Extended["ers_store_fraction"].F, 1e-6)
}

func TestF125RejectsTruncatedHeader(t *testing.T) {
	d := New(Options{})
	_, err := d.ProcessPacket([]byte{1, 2, 3})
	require.Error(t, err)
	de, ok := err.(*decoders.DecodeError)
	require.True(t, ok)
	require.Equal(t, decoders.KindTruncatedBuffer, de.Kind)
}

func TestF125RejectsWrongPacketFormat(t *testing.T) {
	d := New(Options{})
	buf := buildSessionPacket(10, 1, 28, 22)
	binary.LittleEndian.PutUint16(buf[offPacketFormat:], 2024)
	_, err := d.ProcessPacket(buf)
	require.Error(t, err)
	de, ok := err.(*decoders.DecodeError)
	require.True(t, ok)
	require.Equal(t, decoders.KindWrongFormat, de.Kind)
}

func TestF125RejectsOutOfRangePlayerIndex(t *testing.T) {
	d := New(Options{})
	buf := buildHeader(packetIDTelem, 200)
	_, err := d.ProcessPacket(buf)
	require.Error(t, err)
	de, ok := err.(*decoders.DecodeError)
	require.True(t, ok)
	require.Equal(t, decoders.KindOutOfRangeIndex, de.Kind)
}

func TestF125UnknownTrackFallsBackToUnknown(t *testing.T) {
	d := New(Options{})
	_, err := d.ProcessPacket(buildSessionPacket(-1, 0, 0, 0))
	require.NoError(t, err)
	_, err = d.ProcessPacket(buildTelemetryPacket(0, 0, 0, 0, 0, 0, 0, 0))
	require.NoError(t, err)
	rec, err := d.ProcessPacket(buildStatusPacket(0, 0, 0, 0, 0, 0))
	require.NoError(t, err)
	require.Equal(t, "Unknown", rec.TrackID)
}
