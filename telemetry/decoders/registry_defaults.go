package decoders

import (
	"fmt"

	"github.com/openracing/core/telemetry/decoders/f125"
	"github.com/openracing/core/telemetry/decoders/gt7"
	"github.com/openracing/core/telemetry/decoders/iracing"
)

// game identifier strings accepted by DefaultRegistry / Registry.Build.
const (
	GameF125    = "f1-25"
	GameGT7     = "gt7"
	GameIRacing = "iracing"
)

// DefaultRegistry returns a Registry with every bundled game decoder
// registered, the shape a device-open call looks up by game identifier
// (spec §4.3, §4.2).
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(GameF125, func(opts any) (Decoder, error) {
		o, _ := opts.(f125.Options)
		return f125.New(o), nil
	})
	r.Register(GameGT7, func(opts any) (Decoder, error) {
		if opts != nil {
			return nil, fmt.Errorf("decoders: gt7 takes no options")
		}
		return gt7.New(), nil
	})
	r.Register(GameIRacing, func(opts any) (Decoder, error) {
		if opts != nil {
			return nil, fmt.Errorf("decoders: iracing takes no options")
		}
		return iracing.New(), nil
	})
	return r
}
