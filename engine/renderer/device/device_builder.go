package device

import (
	"log/slog"

	"github.com/cogentcore/webgpu/wgpu"
)

// DeviceBuilderOption is a functional option applied to a device during construction via NewDevice.
type DeviceBuilderOption func(*wgpuDevice)

// WithSurfaceDescriptor attaches a window surface to the device. Without it the device is headless
// and ConfigureSurface, AcquireFrame and Present are unavailable.
//
// Parameters:
//   - desc: the platform surface descriptor, usually obtained from the window
//
// Returns:
//   - DeviceBuilderOption: a function that applies the surface option to a device
func WithSurfaceDescriptor(desc *wgpu.SurfaceDescriptor) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.surfaceDescriptor = desc
	}
}

// WithForceFallbackAdapter requests a CPU/software adapter instead of a hardware GPU.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - DeviceBuilderOption: a function that applies the fallback option to a device
func WithForceFallbackAdapter(force bool) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.forceFallback = force
	}
}

// WithMaxBindGroups overrides the required bind group limit. The default is 8.
func WithMaxBindGroups(n uint32) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		if n > 0 {
			d.maxBindGroups = n
		}
	}
}

// WithPresentMode sets the surface present mode. The default is Fifo (vsync).
func WithPresentMode(mode wgpu.PresentMode) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.presentMode = mode
	}
}

// WithLogger sets the logger used for device diagnostics.
func WithLogger(logger *slog.Logger) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		if logger != nil {
			d.logger = logger
		}
	}
}
