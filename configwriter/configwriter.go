// Package configwriter generates and updates the small per-game sidecar
// contract that tells a game where to send (or expose) telemetry so a
// decoder (component D) can receive it. It owns only the pure text/JSON
// emitter and diff/validation logic; actually driving a game's own
// settings UI or config format is an external concern this package does
// not implement.
package configwriter

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/openracing/core/telemetry/decoders"
)

// Transport names accepted in an Endpoint.
const (
	TransportUDP          = "udp"
	TransportSharedMemory = "shared-memory"
)

// Endpoint is the sidecar contract written for one game: where telemetry
// will be received and at what rate decoders should expect updates.
type Endpoint struct {
	Game             string  `json:"game"`
	Transport        string  `json:"transport"`
	BindAddress      string  `json:"bind_address,omitempty"`
	Port             int     `json:"port,omitempty"`
	SharedMemoryName string  `json:"shared_memory_name,omitempty"`
	UpdateRateHz     float64 `json:"update_rate_hz"`
}

// DefaultEndpoint returns the well-known sidecar contract for a bundled
// game identifier, matching the wire-format constants each decoder was
// built against.
func DefaultEndpoint(game string) (Endpoint, error) {
	switch game {
	case decoders.GameF125:
		return Endpoint{
			Game:         game,
			Transport:    TransportUDP,
			BindAddress:  "0.0.0.0",
			Port:         20777,
			UpdateRateHz: 60,
		}, nil
	case decoders.GameGT7:
		return Endpoint{
			Game:         game,
			Transport:    TransportUDP,
			BindAddress:  "0.0.0.0",
			Port:         33740,
			UpdateRateHz: 60,
		}, nil
	case decoders.GameIRacing:
		return Endpoint{
			Game:             game,
			Transport:        TransportSharedMemory,
			SharedMemoryName: `Local\IRSDKMemMapFileName`,
			UpdateRateHz:     60,
		}, nil
	default:
		return Endpoint{}, fmt.Errorf("configwriter: unknown game %q", game)
	}
}

// Validate performs structural checks on an Endpoint before it is
// written or compared.
func Validate(e Endpoint) error {
	if e.Game == "" {
		return fmt.Errorf("configwriter: game identifier required")
	}
	if e.UpdateRateHz <= 0 {
		return fmt.Errorf("configwriter: update_rate_hz must be positive")
	}
	switch e.Transport {
	case TransportUDP:
		if e.Port <= 0 || e.Port > 65535 {
			return fmt.Errorf("configwriter: port %d out of range", e.Port)
		}
		if e.BindAddress != "" && net.ParseIP(e.BindAddress) == nil {
			return fmt.Errorf("configwriter: bind_address %q is not a valid IP", e.BindAddress)
		}
	case TransportSharedMemory:
		if e.SharedMemoryName == "" {
			return fmt.Errorf("configwriter: shared_memory_name required")
		}
	default:
		return fmt.Errorf("configwriter: unknown transport %q", e.Transport)
	}
	return nil
}

// Generate renders an Endpoint as indented JSON.
func Generate(e Endpoint) ([]byte, error) {
	if err := Validate(e); err != nil {
		return nil, err
	}
	return json.MarshalIndent(e, "", "  ")
}
