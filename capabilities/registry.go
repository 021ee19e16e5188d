package capabilities

import "sync"

// fallbackAllowList are vendors whose devices may be treated as
// supported purely on descriptor evidence (PID or vendor usage pages)
// even when the specific (vendor, product) pair is not registered.
// Matches the small, curated allow-list the specification calls for.
var fallbackAllowList = map[uint16]struct{}{
	vMozaVendorID: {},
	0x044F:        {}, // Thrustmaster
	0x046D:        {}, // Logitech
	0x0EB7:        {}, // Fanatec
	0x30B7:        {}, // Simucube
}

// Registry maps a vendor ID to its Policy, the same read-mostly
// map-plus-RWMutex shape as the decoder registry.
type Registry struct {
	mu       sync.RWMutex
	policies map[uint16]Policy
}

// NewRegistry returns a Registry pre-populated with the vendors this
// codebase knows about out of the box.
func NewRegistry() *Registry {
	r := &Registry{policies: make(map[uint16]Policy)}
	r.Register(vMozaVendorID, vMozaPolicy())
	r.Register(0x044F, genericWheelbasePolicy(12, 16384)) // Thrustmaster
	r.Register(0x046D, genericWheelbasePolicy(7, 4096))   // Logitech
	r.Register(0x0EB7, genericWheelbasePolicy(25, 131072)) // Fanatec
	r.Register(0x30B7, genericWheelbasePolicy(32, 262144)) // Simucube
	return r
}

func (r *Registry) Register(vendor uint16, policy Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[vendor] = policy
}

func (r *Registry) lookup(vendor uint16) (Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[vendor]
	return p, ok
}

// CapabilitiesFor implements capabilities_for(identity, descriptor).
// mode is the caller's requested transport mode (TransportUnset if the
// caller expressed no preference); kind classifies the device as a
// wheelbase, peripheral, or unknown, typically derived from the
// product catalog alongside the descriptor.
func (r *Registry) CapabilitiesFor(id Identity, kind DeviceKind, mode TransportMode, descriptor []byte) DeviceCapabilities {
	if policy, ok := r.lookup(id.Vendor); ok {
		return policy.Capabilities(id.Product, kind, mode)
	}
	// Descriptor-qualified fallback devices are "supported" for
	// enumeration purposes but still get the conservative profile —
	// there is no vendor-specific policy to consult.
	return conservativeDefault
}

// IsSupported implements is_supported(identity, descriptor): true when
// the vendor is registered, or when the descriptor advertises PID or
// vendor usage pages AND the vendor is on the small fallback allow-list.
func (r *Registry) IsSupported(id Identity, descriptor []byte) bool {
	if _, ok := r.lookup(id.Vendor); ok {
		return true
	}
	hints := ParseDescriptorHints(descriptor)
	return r.descriptorFallbackSupported(id.Vendor, hints)
}

func (r *Registry) descriptorFallbackSupported(vendor uint16, hints DescriptorHints) bool {
	if !hints.HasPIDUsagePage && !hints.HasVendorUsagePage {
		return false
	}
	_, allowed := fallbackAllowList[vendor]
	return allowed
}
