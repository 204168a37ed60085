package device

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

var errNoSurface = errors.New("device was created without a surface")

// SurfaceDevice is a Device backed by a real wgpu adapter that can optionally present to a window
// surface.
type SurfaceDevice interface {
	Device

	// ConfigureSurface (re)configures the swapchain for the given pixel size.
	//
	// Parameters:
	//   - width, height: framebuffer size in pixels
	//
	// Returns:
	//   - error: errNoSurface when the device has no surface
	ConfigureSurface(width, height int) error

	// SurfaceFormat returns the texture format chosen when the surface was configured.
	SurfaceFormat() wgpu.TextureFormat

	// AcquireFrame acquires the next swapchain image and returns a view of it. The view stays valid
	// until Present is called.
	//
	// Returns:
	//   - *wgpu.TextureView: the render target for this frame
	//   - error: error if the surface image cannot be acquired
	AcquireFrame() (*wgpu.TextureView, error)

	// Present shows the frame acquired by AcquireFrame and releases it.
	Present()

	// Release destroys the device, adapter, surface and instance.
	Release()
}

// wgpuDevice implements SurfaceDevice on top of cogentcore/webgpu.
type wgpuDevice struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceDescriptor *wgpu.SurfaceDescriptor
	surfaceFormat     wgpu.TextureFormat
	presentMode       wgpu.PresentMode
	forceFallback     bool
	maxBindGroups     uint32
	logger            *slog.Logger

	frameTexture *wgpu.Texture
	frameView    *wgpu.TextureView
}

var _ SurfaceDevice = &wgpuDevice{}

// NewDevice requests an adapter and a device from a new wgpu instance.
// The calling goroutine is locked to its OS thread, as the native backends require.
//
// Parameters:
//   - options: functional options configuring the device
//
// Returns:
//   - SurfaceDevice: the device
//   - error: error if no adapter or device is available
func NewDevice(options ...DeviceBuilderOption) (SurfaceDevice, error) {
	runtime.LockOSThread()

	d := &wgpuDevice{
		mu:            &sync.Mutex{},
		presentMode:   wgpu.PresentModeFifo,
		maxBindGroups: 8,
		logger:        slog.Default(),
	}
	for _, opt := range options {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	if d.surfaceDescriptor != nil {
		d.surface = d.instance.CreateSurface(d.surfaceDescriptor)
	}

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallback,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	d.adapter = a

	// The voxelization and main passes bind four groups each.
	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = d.maxBindGroups

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	d.logger.Debug("device ready", "fallback", d.forceFallback, "maxBindGroups", d.maxBindGroups)
	return d, nil
}

func (d *wgpuDevice) CreateBuffer(desc *wgpu.BufferDescriptor) (*wgpu.Buffer, error) {
	return d.device.CreateBuffer(desc)
}

func (d *wgpuDevice) WriteBuffer(buffer *wgpu.Buffer, offset uint64, data []byte) error {
	if buffer == nil {
		return errors.New("write to nil buffer")
	}
	d.queue.WriteBuffer(buffer, offset, data)
	return nil
}

func (d *wgpuDevice) CreateTexture(desc *wgpu.TextureDescriptor) (*wgpu.Texture, error) {
	return d.device.CreateTexture(desc)
}

func (d *wgpuDevice) CreateTextureView(texture *wgpu.Texture, desc *wgpu.TextureViewDescriptor) (*wgpu.TextureView, error) {
	return texture.CreateView(desc)
}

func (d *wgpuDevice) WriteTexture(texture *wgpu.Texture, pixels []byte, width, height uint32) error {
	if uint64(len(pixels)) < uint64(width)*uint64(height)*4 {
		return fmt.Errorf("texture upload needs %d bytes, got %d", width*height*4, len(pixels))
	}
	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  width * 4,
			RowsPerImage: height,
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (d *wgpuDevice) CreateSampler(desc *wgpu.SamplerDescriptor) (*wgpu.Sampler, error) {
	return d.device.CreateSampler(desc)
}

func (d *wgpuDevice) CreateShaderModule(label, source string) (*wgpu.ShaderModule, error) {
	return d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
}

func (d *wgpuDevice) CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (*wgpu.BindGroupLayout, error) {
	return d.device.CreateBindGroupLayout(desc)
}

func (d *wgpuDevice) CreateBindGroup(desc *wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error) {
	return d.device.CreateBindGroup(desc)
}

func (d *wgpuDevice) CreatePipelineLayout(desc *wgpu.PipelineLayoutDescriptor) (*wgpu.PipelineLayout, error) {
	return d.device.CreatePipelineLayout(desc)
}

func (d *wgpuDevice) CreateRenderPipeline(desc *wgpu.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	return d.device.CreateRenderPipeline(desc)
}

func (d *wgpuDevice) CreateComputePipeline(desc *wgpu.ComputePipelineDescriptor) (*wgpu.ComputePipeline, error) {
	return d.device.CreateComputePipeline(desc)
}

func (d *wgpuDevice) NewCommands(label string) (Commands, error) {
	encoder, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("failed to create command encoder: %w", err)
	}
	return &wgpuCommands{encoder: encoder, queue: d.queue}, nil
}

func (d *wgpuDevice) ConfigureSurface(width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.surface == nil {
		return errNoSurface
	}

	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surfaceFormat = capabilities.Formats[0]

	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	return nil
}

func (d *wgpuDevice) SurfaceFormat() wgpu.TextureFormat {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.surfaceFormat
}

func (d *wgpuDevice) AcquireFrame() (*wgpu.TextureView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.surface == nil {
		return nil, errNoSurface
	}
	if d.frameTexture != nil {
		return nil, errors.New("previous frame not yet presented")
	}

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, err
	}

	d.frameTexture = surfaceTexture
	d.frameView = view
	return view, nil
}

func (d *wgpuDevice) Present() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameTexture == nil {
		return
	}
	d.surface.Present()

	d.frameView.Release()
	d.frameTexture.Release()
	d.frameView = nil
	d.frameTexture = nil
}

func (d *wgpuDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.queue != nil {
		d.queue.Release()
	}
	if d.device != nil {
		d.device.Release()
	}
	if d.adapter != nil {
		d.adapter.Release()
	}
	if d.surface != nil {
		d.surface.Release()
	}
	if d.instance != nil {
		d.instance.Release()
	}
}

// wgpuCommands adapts a wgpu command encoder to Commands.
type wgpuCommands struct {
	encoder *wgpu.CommandEncoder
	queue   *wgpu.Queue
}

func (c *wgpuCommands) BeginRenderPass(desc *wgpu.RenderPassDescriptor) RenderPass {
	return &wgpuRenderPass{pass: c.encoder.BeginRenderPass(desc)}
}

func (c *wgpuCommands) BeginComputePass(label string) ComputePass {
	return &wgpuComputePass{pass: c.encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: label})}
}

func (c *wgpuCommands) Submit() error {
	defer c.encoder.Release()

	commandBuffer, err := c.encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish command encoder: %w", err)
	}
	defer commandBuffer.Release()

	c.queue.Submit(commandBuffer)
	return nil
}

type wgpuRenderPass struct {
	pass *wgpu.RenderPassEncoder
}

func (p *wgpuRenderPass) SetPipeline(pipeline *wgpu.RenderPipeline) {
	p.pass.SetPipeline(pipeline)
}

func (p *wgpuRenderPass) SetBindGroup(index uint32, group *wgpu.BindGroup) {
	p.pass.SetBindGroup(index, group, nil)
}

func (p *wgpuRenderPass) SetVertexBuffer(slot uint32, buffer *wgpu.Buffer, offset uint64) {
	p.pass.SetVertexBuffer(slot, buffer, offset, wgpu.WholeSize)
}

func (p *wgpuRenderPass) SetIndexBuffer(buffer *wgpu.Buffer, format wgpu.IndexFormat, offset uint64) {
	p.pass.SetIndexBuffer(buffer, format, offset, wgpu.WholeSize)
}

func (p *wgpuRenderPass) Draw(vertexCount, instanceCount uint32) {
	p.pass.Draw(vertexCount, instanceCount, 0, 0)
}

func (p *wgpuRenderPass) DrawIndexed(indexCount, instanceCount uint32) {
	p.pass.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
}

func (p *wgpuRenderPass) End() {
	p.pass.End()
	p.pass.Release()
}

type wgpuComputePass struct {
	pass *wgpu.ComputePassEncoder
}

func (p *wgpuComputePass) SetPipeline(pipeline *wgpu.ComputePipeline) {
	p.pass.SetPipeline(pipeline)
}

func (p *wgpuComputePass) SetBindGroup(index uint32, group *wgpu.BindGroup) {
	p.pass.SetBindGroup(index, group, nil)
}

func (p *wgpuComputePass) DispatchWorkgroups(x, y, z uint32) {
	p.pass.DispatchWorkgroups(x, y, z)
}

func (p *wgpuComputePass) End() {
	p.pass.End()
	p.pass.Release()
}
