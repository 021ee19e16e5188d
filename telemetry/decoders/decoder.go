// Package decoders defines the small contract every per-game telemetry
// decoder implements (spec component D, §4.3) plus a registry mapping a
// game identifier to a decoder constructor, and the heartbeat-timeout
// governance helper shared by the UDP-based decoders.
package decoders

import (
	"fmt"
	"sync"
	"time"

	"github.com/openracing/core/telemetry"
)

// ErrorKind classifies why normalize() rejected a buffer. Every decoder
// error implements DecodeError so callers can switch on Kind instead of
// string-matching.
type ErrorKind string

const (
	KindMalformedPacket  ErrorKind = "malformed_packet"
	KindTruncatedBuffer  ErrorKind = "truncated_buffer"
	KindMagicMismatch    ErrorKind = "magic_mismatch"
	KindWrongFormat      ErrorKind = "wrong_format_version"
	KindOutOfRangeIndex  ErrorKind = "out_of_range_index"
)

// DecodeError is the classified error every decoder returns instead of
// panicking on adversarial input.
type DecodeError struct {
	Kind ErrorKind
	Msg  string
}

func (e *DecodeError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Msg) }

func NewDecodeError(kind ErrorKind, msg string) *DecodeError {
	return &DecodeError{Kind: kind, Msg: msg}
}

// Frame pairs a normalized record with the time it was produced, the
// unit pushed onto a decoder's bounded channel (spec §4.3, §5).
type Frame struct {
	Record *telemetry.Record
	At     time.Time
}

// Decoder is the contract every game integration implements.
type Decoder interface {
	// Normalize must be a total function: every byte sequence, however
	// adversarial, yields either a Record or a classified error, never
	// a panic.
	Normalize(buf []byte) (*telemetry.Record, error)
	ExpectedUpdateRate() time.Duration
}

// PushDecoder is implemented by decoders that own their own receive
// loop (UDP-based decoders) and publish frames on a channel rather
// than being called synchronously per-packet.
type PushDecoder interface {
	Decoder
	Start(stop <-chan struct{}) (<-chan Frame, error)
}

// ReceiveTimeout derives the UDP receive timeout from a decoder's
// expected update rate: roughly 4x the update period, so the receive
// loop can still emit heartbeats while waiting (spec §5).
func ReceiveTimeout(d Decoder) time.Duration {
	period := d.ExpectedUpdateRate()
	if period <= 0 {
		period = 16 * time.Millisecond
	}
	return 4 * period
}

// Constructor builds a Decoder from a decoder-specific options value;
// individual decoders define their own options type and assert it.
type Constructor func(opts any) (Decoder, error)

// Registry maps a game identifier string to a Decoder constructor, the
// same shape as the teacher's strategy-selection registries: a
// read-mostly map guarded by a RWMutex, with registration happening at
// package init and lookup happening per device-open.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

func NewRegistry() *Registry { return &Registry{ctors: make(map[string]Constructor)} }

func (r *Registry) Register(game string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[game] = ctor
}

func (r *Registry) Build(game string, opts any) (Decoder, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[game]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("decoders: unknown game %q", game)
	}
	return ctor(opts)
}

func (r *Registry) Games() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ctors))
	for g := range r.ctors {
		out = append(out, g)
	}
	return out
}
