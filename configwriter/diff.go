package configwriter

import "fmt"

// Change describes one field that differs between an existing sidecar
// contract and the desired one.
type Change struct {
	Field string
	Old   string
	New   string
}

// Diff reports every field where desired differs from existing. A zero
// Endpoint{} for existing (the "file did not exist yet" case) reports
// every non-zero desired field as a change.
func Diff(existing, desired Endpoint) []Change {
	var changes []Change
	add := func(field, oldV, newV string) {
		if oldV != newV {
			changes = append(changes, Change{Field: field, Old: oldV, New: newV})
		}
	}
	add("game", existing.Game, desired.Game)
	add("transport", existing.Transport, desired.Transport)
	add("bind_address", existing.BindAddress, desired.BindAddress)
	add("port", fmt.Sprint(existing.Port), fmt.Sprint(desired.Port))
	add("shared_memory_name", existing.SharedMemoryName, desired.SharedMemoryName)
	add("update_rate_hz", fmt.Sprint(existing.UpdateRateHz), fmt.Sprint(desired.UpdateRateHz))
	return changes
}
