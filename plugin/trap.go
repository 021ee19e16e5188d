package plugin

import (
	"context"
	"errors"
	"strings"
)

// TrapKind classifies why a plugin call failed, matching the two
// termination signals the runtime recognizes: fuel exhaustion and
// everything else.
type TrapKind int

const (
	TrapCrashed TrapKind = iota
	TrapBudgetViolation
)

func (k TrapKind) String() string {
	if k == TrapBudgetViolation {
		return "budget violation"
	}
	return "crashed"
}

// TrapError is returned when a plugin call traps. Location is
// best-effort: it is populated when the underlying wazero error
// carries a WASM stack trace, empty otherwise.
type TrapError struct {
	Kind     TrapKind
	Reason   string
	Budget   uint64
	Location string
}

func (e *TrapError) Error() string {
	if e.Kind == TrapBudgetViolation {
		return "budget violation: exceeded fuel budget " + itoa(e.Budget)
	}
	msg := "crashed: " + e.Reason
	if e.Location != "" {
		msg += " at " + e.Location
	}
	return msg
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	digits := [20]byte{}
	i := len(digits)
	for v > 0 {
		i--
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	return string(digits[i:])
}

// classifyTrap turns a wazero Call error into a TrapError. A call that
// hit its deadline (the fuel-budget proxy, see Limits.FuelPerCall) is
// a budget violation; anything else is a generic crash.
func classifyTrap(err error, budget uint64) *TrapError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TrapError{Kind: TrapBudgetViolation, Budget: budget}
	}
	return &TrapError{Kind: TrapCrashed, Reason: err.Error(), Location: bestEffortLocation(err.Error())}
}

func bestEffortLocation(msg string) string {
	const marker = "wasm stack trace:"
	idx := strings.Index(msg, marker)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(msg[idx+len(marker):])
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	return strings.TrimSpace(rest)
}

// disabledError is returned by Process once an instance has been
// disabled, until ReEnable is called.
type disabledError struct {
	info DisabledInfo
}

func (e *disabledError) Error() string {
	return "crashed: disabled since " + e.info.Timestamp.Format("15:04:05") + ": " + e.info.Reason
}

func (e *disabledError) Unwrap() error { return ErrDisabled }
