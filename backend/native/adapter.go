package native

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/rhi"
	"github.com/gogpu/wgpu/hal"
)

// defaultBackendPriority is tried when the configuration names no backend.
// BackendEmpty is last: it is the noop or software backend.
var defaultBackendPriority = []gputypes.Backend{
	gputypes.BackendVulkan,
	gputypes.BackendMetal,
	gputypes.BackendDX12,
	gputypes.BackendGL,
	gputypes.BackendEmpty,
}

// selectBackend returns the first registered HAL backend of the configured
// priority list.
func selectBackend(cfg rhi.Config) (hal.Backend, error) {
	priority := cfg.Backends
	if len(priority) == 0 {
		priority = defaultBackendPriority
	}
	for _, variant := range priority {
		if b, ok := hal.GetBackend(variant); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: tried %v", ErrNoBackend, priority)
}

// instanceDescriptor builds the HAL instance descriptor for cfg.
func instanceDescriptor(cfg rhi.Config) *hal.InstanceDescriptor {
	desc := &hal.InstanceDescriptor{Backends: gputypes.BackendsPrimary | gputypes.BackendsGL}
	if cfg.Debug {
		desc.Flags = gputypes.InstanceFlagsDebug | gputypes.InstanceFlagsValidation
	}
	return desc
}

// deviceRank orders device types for autodetection; lower is preferred.
func deviceRank(t gputypes.DeviceType, pref rhi.PowerPreference) int {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		if pref == rhi.PowerLowPower {
			return 1
		}
		return 0
	case gputypes.DeviceTypeIntegratedGPU:
		if pref == rhi.PowerLowPower {
			return 0
		}
		return 1
	case gputypes.DeviceTypeVirtualGPU:
		return 2
	case gputypes.DeviceTypeCPU:
		return 3
	default:
		return 4
	}
}

// selectAdapter picks an adapter by name when one is configured, otherwise
// by device type according to the power preference. Ties keep enumeration order.
func selectAdapter(adapters []hal.ExposedAdapter, cfg rhi.Config) (hal.ExposedAdapter, error) {
	if len(adapters) == 0 {
		return hal.ExposedAdapter{}, ErrNoAdapter
	}

	if cfg.AdapterName != "" {
		want := strings.ToLower(cfg.AdapterName)
		for _, a := range adapters {
			if strings.Contains(strings.ToLower(a.Info.Name), want) {
				return a, nil
			}
		}
		return hal.ExposedAdapter{}, fmt.Errorf("%w: no adapter named %q", ErrNoAdapter, cfg.AdapterName)
	}

	ranked := slices.Clone(adapters)
	slices.SortStableFunc(ranked, func(a, b hal.ExposedAdapter) int {
		return cmp.Compare(deviceRank(a.Info.DeviceType, cfg.PowerPreference),
			deviceRank(b.Info.DeviceType, cfg.PowerPreference))
	})
	return ranked[0], nil
}

// adapterType maps a HAL device type onto the gpucontext classification.
func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}
