package renderer

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-voxel/engine/camera"
	"github.com/Carmen-Shannon/oxy-voxel/engine/light"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithCamera sets the camera of the main pass. Without it the renderer creates a default
// camera matching the target aspect ratio.
//
// Parameters:
//   - cam: the camera to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the camera option to a renderer
func WithCamera(cam camera.Camera) RendererBuilderOption {
	return func(r *renderer) {
		r.camera = cam
	}
}

// WithLights sets the initial light set. Without it the renderer uses light.DefaultLights.
//
// Parameters:
//   - lights: the lights to upload
//
// Returns:
//   - RendererBuilderOption: a function that applies the lights option to a renderer
func WithLights(lights []light.Light) RendererBuilderOption {
	return func(r *renderer) {
		r.lights = lights
	}
}

// WithTargetFormat sets the color format of the main pass target, normally the surface format.
//
// Parameters:
//   - format: the target texture format
//
// Returns:
//   - RendererBuilderOption: a function that applies the format option to a renderer
func WithTargetFormat(format wgpu.TextureFormat) RendererBuilderOption {
	return func(r *renderer) {
		r.targetFormat = format
	}
}

// WithSize sets the initial target size in pixels. Zero values are ignored.
//
// Parameters:
//   - width, height: the target size
//
// Returns:
//   - RendererBuilderOption: a function that applies the size option to a renderer
func WithSize(width, height uint32) RendererBuilderOption {
	return func(r *renderer) {
		if width > 0 && height > 0 {
			r.width, r.height = width, height
		}
	}
}

// WithVoxelResolution sets the edge length of the voxel volume.
//
// Parameters:
//   - resolution: texels per axis, a power of two for a clean mip chain
//
// Returns:
//   - RendererBuilderOption: a function that applies the resolution option to a renderer
func WithVoxelResolution(resolution uint32) RendererBuilderOption {
	return func(r *renderer) {
		if resolution > 0 {
			r.voxelResolution = resolution
		}
	}
}

// WithShadowMapSize sets the width and height of the shadow map.
func WithShadowMapSize(size uint32) RendererBuilderOption {
	return func(r *renderer) {
		if size > 0 {
			r.shadowMapSize = size
		}
	}
}

// WithStaticLighting controls whether the shadow, voxelization and mip passes run once
// (true, the default) or every frame.
//
// Parameters:
//   - static: true to record the lighting passes only when they are stale
//
// Returns:
//   - RendererBuilderOption: a function that applies the lighting mode to a renderer
func WithStaticLighting(static bool) RendererBuilderOption {
	return func(r *renderer) {
		r.staticLighting = static
	}
}

// WithClearColor sets the background color of the main pass.
func WithClearColor(color wgpu.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = color
	}
}

// WithLogger sets the logger shared by the renderer, its registry and its voxel volume.
func WithLogger(logger *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}
