package device

import (
	"context"
	"fmt"

	"github.com/openracing/core/capabilities"
	"github.com/openracing/core/internal/telemetry/logging"
)

// ClassifyKind resolves a DeviceKind for a recognized (vendor, product)
// pair; unregistered pairs default to KindUnknown. Callers populate this
// from their own product catalog — §4.1 only requires that a kind is
// available by the time a capability policy runs, not how it is sourced.
type ClassifyKind func(id capabilities.Identity) capabilities.DeviceKind

func defaultClassify(capabilities.Identity) capabilities.DeviceKind { return capabilities.KindUnknown }

// ListOptions configures List beyond the capability registry.
type ListOptions struct {
	Classify ClassifyKind // nil uses defaultClassify (always KindUnknown)
	Logger   logging.Logger
}

// List implements list() -> ordered_sequence_of(DeviceInfo) (spec
// §4.2): walk the OS HID surface, keep only devices the capability
// registry considers supported, and probe each survivor for its
// identity and descriptor. No serial number is read: DeviceInfo.Serial
// is left empty.
func List(ctx context.Context, registry *capabilities.Registry, opts ListOptions) ([]DeviceInfo, error) {
	classify := opts.Classify
	if classify == nil {
		classify = defaultClassify
	}
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}

	nodes, err := enumerateNodes()
	if err != nil {
		return nil, fmt.Errorf("device: enumerate HID nodes: %w", err)
	}

	var infos []DeviceInfo
	for _, node := range nodes {
		port, _, err := openHidraw(node)
		if err != nil {
			log.DebugCtx(ctx, "device: skipping unreadable node", "node", node, "error", err)
			continue
		}

		vendor, product, err := port.rawInfo()
		if err != nil {
			log.DebugCtx(ctx, "device: HIDIOCGRAWINFO failed, skipping", "node", node, "error", err)
			_ = port.Close()
			continue
		}
		descriptor, err := port.descriptor()
		if err != nil {
			log.DebugCtx(ctx, "device: descriptor fetch failed, skipping", "node", node, "error", err)
			_ = port.Close()
			continue
		}
		_ = port.Close()

		id := capabilities.Identity{Vendor: vendor, Product: product}
		if !registry.IsSupported(id, descriptor) {
			continue
		}

		infos = append(infos, DeviceInfo{
			ID:              DeviceId(node),
			Identity:        id,
			Kind:            classify(id),
			Descriptor:      descriptor,
			InterfaceNumber: interfaceNumber(node),
		})
	}
	return infos, nil
}
