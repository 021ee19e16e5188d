package configwriter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultEndpointF125(t *testing.T) {
	e, err := DefaultEndpoint("f1-25")
	require.NoError(t, err)
	require.Equal(t, TransportUDP, e.Transport)
	require.Equal(t, 20777, e.Port)
	require.NoError(t, Validate(e))
}

func TestDefaultEndpointGT7(t *testing.T) {
	e, err := DefaultEndpoint("gt7")
	require.NoError(t, err)
	require.Equal(t, 33740, e.Port)
	require.NoError(t, Validate(e))
}

func TestDefaultEndpointIRacingIsSharedMemory(t *testing.T) {
	e, err := DefaultEndpoint("iracing")
	require.NoError(t, err)
	require.Equal(t, TransportSharedMemory, e.Transport)
	require.NotEmpty(t, e.SharedMemoryName)
	require.NoError(t, Validate(e))
}

func TestDefaultEndpointUnknownGame(t *testing.T) {
	_, err := DefaultEndpoint("not-a-game")
	require.Error(t, err)
}

func TestValidateRejectsOutOfRangePort(t *testing.T) {
	e := Endpoint{Game: "f1-25", Transport: TransportUDP, Port: 0, UpdateRateHz: 60}
	require.Error(t, Validate(e))
}

func TestValidateRejectsMissingSharedMemoryName(t *testing.T) {
	e := Endpoint{Game: "iracing", Transport: TransportSharedMemory, UpdateRateHz: 60}
	require.Error(t, Validate(e))
}

func TestValidateRejectsBadBindAddress(t *testing.T) {
	e := Endpoint{Game: "f1-25", Transport: TransportUDP, Port: 20777, BindAddress: "not-an-ip", UpdateRateHz: 60}
	require.Error(t, Validate(e))
}

func TestGenerateProducesValidJSON(t *testing.T) {
	e, err := DefaultEndpoint("f1-25")
	require.NoError(t, err)
	data, err := Generate(e)
	require.NoError(t, err)
	require.Contains(t, string(data), `"port": 20777`)
}
