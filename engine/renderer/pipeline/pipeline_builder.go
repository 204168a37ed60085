package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure the pipelines of one pass.
type PipelineBuilderOption func(*pipeline)

// WithExtraLayouts sets the pass-owned bind group layouts. They occupy groups 0..n-1 and push
// the scene's transform and material groups to n and n+1.
//
// Parameters:
//   - layouts: the pass-owned layouts in group order
//
// Returns:
//   - PipelineBuilderOption: a function that sets the extra layouts
func WithExtraLayouts(layouts ...*wgpu.BindGroupLayout) PipelineBuilderOption {
	return func(p *pipeline) {
		p.extraLayouts = layouts
	}
}

// WithColorTargets sets the color attachments written by the fragment stage.
//
// Parameters:
//   - targets: one state per color attachment
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color targets
func WithColorTargets(targets ...wgpu.ColorTargetState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.colorTargets = targets
	}
}

// WithDepthTestEnabled sets whether the pass has a depth attachment. Enabled depth tests
// compare Less against a Depth32Float attachment and write depth.
//
// Parameters:
//   - enabled: a boolean indicating whether depth testing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth test enabled state
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthTestEnabled = enabled
	}
}

// WithDepthCompare overrides the depth comparison function.
func WithDepthCompare(compare wgpu.CompareFunction) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthCompare = compare
	}
}

// WithDepthBias sets the constant and slope-scaled depth bias.
//
// Parameters:
//   - bias: the constant depth bias value
//   - slopeScale: the slope scale factor for depth bias
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth bias
func WithDepthBias(bias int32, slopeScale float32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthBias = bias
		p.depthBiasSlopeScale = slopeScale
	}
}

// WithCullBackFaces culls back faces when enabled; otherwise nothing is culled.
//
// Parameters:
//   - enabled: whether to cull back faces
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode
func WithCullBackFaces(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		if enabled {
			p.cullMode = wgpu.CullModeBack
		} else {
			p.cullMode = wgpu.CullModeNone
		}
	}
}
