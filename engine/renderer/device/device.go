// Package device wraps the WebGPU device and queue behind an interface so that every renderer
// component receives its GPU context explicitly. The wgpu-backed implementation lives in
// wgpu_device.go; tests use the recording fake in devicetest.
package device

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Device is the GPU context handed to every renderer constructor.
// Handles returned by the Create methods are owned by the caller and live for the lifetime of
// the scene that requested them.
type Device interface {
	// CreateBuffer allocates a GPU buffer.
	//
	// Parameters:
	//   - desc: the buffer descriptor (size must be a multiple of 4 for writable buffers)
	//
	// Returns:
	//   - *wgpu.Buffer: the new buffer
	//   - error: error if allocation fails
	CreateBuffer(desc *wgpu.BufferDescriptor) (*wgpu.Buffer, error)

	// WriteBuffer schedules a copy of data into buffer at offset on the device queue.
	//
	// Parameters:
	//   - buffer: destination buffer (must carry CopyDst usage)
	//   - offset: byte offset into the destination
	//   - data: bytes to copy, length a multiple of 4
	WriteBuffer(buffer *wgpu.Buffer, offset uint64, data []byte) error

	// CreateTexture allocates a texture.
	//
	// Parameters:
	//   - desc: the texture descriptor
	//
	// Returns:
	//   - *wgpu.Texture: the new texture
	//   - error: error if allocation fails
	CreateTexture(desc *wgpu.TextureDescriptor) (*wgpu.Texture, error)

	// CreateTextureView creates a view of texture. A nil descriptor views the whole resource.
	//
	// Parameters:
	//   - texture: the viewed texture
	//   - desc: the view descriptor, or nil
	//
	// Returns:
	//   - *wgpu.TextureView: the new view
	//   - error: error if creation fails
	CreateTextureView(texture *wgpu.Texture, desc *wgpu.TextureViewDescriptor) (*wgpu.TextureView, error)

	// WriteTexture uploads tightly packed RGBA8 pixels into mip level 0 of a 2D texture.
	//
	// Parameters:
	//   - texture: destination texture (must carry CopyDst usage)
	//   - pixels: RGBA8 data, width*height*4 bytes
	//   - width, height: extent of the upload in texels
	WriteTexture(texture *wgpu.Texture, pixels []byte, width, height uint32) error

	// CreateSampler creates a sampler.
	CreateSampler(desc *wgpu.SamplerDescriptor) (*wgpu.Sampler, error)

	// CreateShaderModule compiles WGSL source into a shader module.
	//
	// Parameters:
	//   - label: debug label
	//   - source: WGSL source code
	//
	// Returns:
	//   - *wgpu.ShaderModule: the compiled module
	//   - error: error if compilation fails
	CreateShaderModule(label, source string) (*wgpu.ShaderModule, error)

	// CreateBindGroupLayout creates a bind group layout.
	CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (*wgpu.BindGroupLayout, error)

	// CreateBindGroup creates a bind group.
	CreateBindGroup(desc *wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error)

	// CreatePipelineLayout creates a pipeline layout.
	CreatePipelineLayout(desc *wgpu.PipelineLayoutDescriptor) (*wgpu.PipelineLayout, error)

	// CreateRenderPipeline compiles a render pipeline.
	CreateRenderPipeline(desc *wgpu.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error)

	// CreateComputePipeline compiles a compute pipeline.
	CreateComputePipeline(desc *wgpu.ComputePipelineDescriptor) (*wgpu.ComputePipeline, error)

	// NewCommands opens a command recorder. Passes recorded on it execute in program order once
	// Submit is called.
	//
	// Parameters:
	//   - label: debug label for the command encoder
	//
	// Returns:
	//   - Commands: the recorder
	//   - error: error if the encoder cannot be created
	NewCommands(label string) (Commands, error)
}

// Commands records render and compute passes into a single submission.
// Only one pass may be open at a time; End it before beginning the next.
type Commands interface {
	// BeginRenderPass opens a render pass.
	BeginRenderPass(desc *wgpu.RenderPassDescriptor) RenderPass

	// BeginComputePass opens a compute pass.
	BeginComputePass(label string) ComputePass

	// Submit finishes the encoder and submits the command buffer to the queue.
	// The recorder must not be used afterwards.
	Submit() error
}

// RenderPass is the subset of the render pass encoder used by the renderer.
type RenderPass interface {
	SetPipeline(pipeline *wgpu.RenderPipeline)
	SetBindGroup(index uint32, group *wgpu.BindGroup)
	SetVertexBuffer(slot uint32, buffer *wgpu.Buffer, offset uint64)
	SetIndexBuffer(buffer *wgpu.Buffer, format wgpu.IndexFormat, offset uint64)
	Draw(vertexCount, instanceCount uint32)
	DrawIndexed(indexCount, instanceCount uint32)
	End()
}

// ComputePass is the subset of the compute pass encoder used by the renderer.
type ComputePass interface {
	SetPipeline(pipeline *wgpu.ComputePipeline)
	SetBindGroup(index uint32, group *wgpu.BindGroup)
	DispatchWorkgroups(x, y, z uint32)
	End()
}
