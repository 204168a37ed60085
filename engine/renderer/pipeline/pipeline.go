// Package pipeline builds one render pipeline per scene draw record for each named pass and
// replays the draw records into a render pass with the right buffers and bind groups.
package pipeline

import (
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/texture"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline holds the per-pass render state shared by every pipeline generated for that pass.
type pipeline struct {
	extraLayouts []*wgpu.BindGroupLayout
	colorTargets []wgpu.ColorTargetState

	depthTestEnabled    bool
	depthWriteEnabled   bool
	depthCompare        wgpu.CompareFunction
	depthBias           int32
	depthBiasSlopeScale float32
	cullMode            wgpu.CullMode
	topology            wgpu.PrimitiveTopology
	frontFace           wgpu.FrontFace
}

func newPipeline(opts ...PipelineBuilderOption) *pipeline {
	p := &pipeline{
		depthWriteEnabled: true,
		depthCompare:      wgpu.CompareFunctionLess,
		cullMode:          wgpu.CullModeNone,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// depthStencil returns the depth state, or nil when the pass renders without depth.
func (p *pipeline) depthStencil() *wgpu.DepthStencilState {
	if !p.depthTestEnabled {
		return nil
	}
	return &wgpu.DepthStencilState{
		Format:              texture.DepthFormat,
		DepthWriteEnabled:   p.depthWriteEnabled,
		DepthCompare:        p.depthCompare,
		DepthBias:           p.depthBias,
		DepthBiasSlopeScale: p.depthBiasSlopeScale,
		StencilFront: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
		StencilBack: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
	}
}

func (p *pipeline) primitive() wgpu.PrimitiveState {
	return wgpu.PrimitiveState{
		Topology:  p.topology,
		FrontFace: p.frontFace,
		CullMode:  p.cullMode,
	}
}
