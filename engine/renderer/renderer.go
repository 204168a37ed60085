// Package renderer records the voxel cone lighting frame: a shadow depth pass, a voxelization
// pass that writes lit albedo into a 3D volume, a compute pass that builds the volume's mip
// chain, and the main pass that shades the scene from the shadow map and the voxel cones.
package renderer

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-voxel/engine/camera"
	"github.com/Carmen-Shannon/oxy-voxel/engine/light"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-voxel/engine/scene"
	"github.com/Carmen-Shannon/oxy-voxel/engine/voxel"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	//go:embed assets/shadow.wgsl
	ShadowSource string
	//go:embed assets/voxelize.wgsl
	VoxelizeSource string
	//go:embed assets/diffuse.wgsl
	DiffuseSource string
	//go:embed assets/lighting.wgsl
	LightingSource string
)

// Pass names registered with the pipeline registry, in frame order.
const (
	PassShadow   = "shadow"
	PassVoxelize = "voxelization"
	PassMain     = "main"
)

// IncludeLighting is the include name of the shared direct lighting functions.
const IncludeLighting = "lighting"

// VoxelTargetFormat is the format of the throwaway color target bound during voxelization.
const VoxelTargetFormat = wgpu.TextureFormatRGBA8Uint

const colorWriteMaskNone wgpu.ColorWriteMask = 0

// ErrNoTarget is returned by RenderFrame when no target view is given.
var ErrNoTarget = errors.New("render target view is nil")

// DefaultClearColor is the background of the main pass.
var DefaultClearColor = wgpu.Color{R: 0.25, G: 0.23, B: 1.0, A: 1.0}

type renderer struct {
	mu     *sync.Mutex
	logger *slog.Logger

	device   device.Device
	scene    scene.Scene
	registry pipeline.Registry
	camera   camera.Camera
	lights   []light.Light

	targetFormat    wgpu.TextureFormat
	width, height   uint32
	voxelResolution uint32
	shadowMapSize   uint32
	staticLighting  bool
	clearColor      wgpu.Color
	lightingValid   bool

	cameraBuffer       *wgpu.Buffer
	shadowCameraBuffer *wgpu.Buffer
	lightsBuffer       *wgpu.Buffer

	shadowMap   *texture.Texture
	depth       *texture.Texture
	voxelTarget *wgpu.TextureView
	volume      voxel.Volume

	shadowGroup      *wgpu.BindGroup
	voxelCameraGroup *wgpu.BindGroup
	voxelizerGroup   *wgpu.BindGroup
	mainCameraGroup  *wgpu.BindGroup
	diffuseGroup     *wgpu.BindGroup
}

// Renderer owns every GPU resource of the frame besides the scene itself and records the four
// passes in a fixed order: shadow, voxelization, mip generation and main.
//
// With static lighting (the default) the first three passes run once, on Prepare or the first
// RenderFrame, and again only after Invalidate or SetLights. Otherwise they run every frame.
// Every frame is recorded into one command encoder and submitted once.
type Renderer interface {
	// Prepare uploads the camera and records the lighting passes when they are stale.
	//
	// Returns:
	//   - error: error if recording or submission fails
	Prepare() error

	// RenderFrame records and submits one frame into target.
	//
	// Parameters:
	//   - target: the color view the main pass draws into, usually the acquired swapchain view
	//
	// Returns:
	//   - error: ErrNoTarget, a registry error or a submission error
	RenderFrame(target *wgpu.TextureView) error

	// Resize recreates the main depth attachment and updates the camera aspect ratio. A zero
	// extent, as reported for a minimized window, is ignored.
	//
	// Parameters:
	//   - width, height: the new target size in pixels
	//
	// Returns:
	//   - error: error if the depth texture cannot be recreated
	Resize(width, height uint32) error

	// Camera returns the camera used by the main pass.
	Camera() camera.Camera

	// SetCamera replaces the camera used by the main pass.
	SetCamera(cam camera.Camera)

	// Lights returns the lights uploaded to the GPU.
	Lights() []light.Light

	// SetLights uploads a new light set and invalidates the lighting passes.
	//
	// Parameters:
	//   - lights: the new lights; the first enabled directional light casts the shadow
	//
	// Returns:
	//   - error: error if the uniform upload fails
	SetLights(lights []light.Light) error

	// Invalidate marks the shadow map and voxel volume stale so that the next frame
	// re-records them.
	Invalidate()

	// Registry returns the pipeline registry holding the three pass pipeline sets.
	Registry() pipeline.Registry

	// Volume returns the voxel volume.
	Volume() voxel.Volume
}

var _ Renderer = &renderer{}

// NewRenderer builds the renderer for a scene: uniforms, shadow map, voxel volume, the
// pass-owned bind groups and one pipeline set per pass.
//
// Parameters:
//   - dev: the device every resource is created on
//   - sc: the built scene
//   - options: builder options
//
// Returns:
//   - Renderer: the renderer
//   - error: error if a shader fails to parse or any GPU object cannot be created
func NewRenderer(dev device.Device, sc scene.Scene, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:              &sync.Mutex{},
		logger:          slog.Default(),
		device:          dev,
		scene:           sc,
		targetFormat:    wgpu.TextureFormatBGRA8UnormSrgb,
		width:           1280,
		height:          720,
		voxelResolution: voxel.DefaultResolution,
		shadowMapSize:   light.ShadowMapResolution,
		staticLighting:  true,
		clearColor:      DefaultClearColor,
	}
	for _, opt := range options {
		opt(r)
	}
	if r.camera == nil {
		r.camera = camera.NewCamera(camera.WithAspect(float32(r.width) / float32(r.height)))
	}
	if r.lights == nil {
		r.lights = light.DefaultLights()
	}
	r.registry = pipeline.NewRegistry(dev, sc, pipeline.WithLogger(r.logger))

	shaders, err := parsePassShaders()
	if err != nil {
		return nil, err
	}
	if err := r.initUniforms(); err != nil {
		return nil, err
	}
	if err := r.initTargets(); err != nil {
		return nil, err
	}
	if err := r.initPasses(shaders); err != nil {
		return nil, err
	}
	if err := r.writeLights(); err != nil {
		return nil, err
	}
	if err := r.writeCamera(); err != nil {
		return nil, err
	}

	r.logger.Info("renderer ready",
		"draw_records", len(sc.DrawRecords()),
		"voxel_resolution", r.voxelResolution,
		"mip_levels", r.volume.MipLevelCount(),
		"shadow_map_size", r.shadowMapSize,
		"static_lighting", r.staticLighting,
	)
	return r, nil
}

type passShaders struct {
	shadow, voxelize, diffuse shader.Shader
}

func parsePassShaders() (passShaders, error) {
	lighting := shader.WithInclude(IncludeLighting, LightingSource)
	var (
		out passShaders
		err error
	)
	if out.shadow, err = shader.NewShader(PassShadow, ShadowSource); err != nil {
		return out, err
	}
	if out.voxelize, err = shader.NewShader(PassVoxelize, VoxelizeSource, lighting); err != nil {
		return out, err
	}
	if out.diffuse, err = shader.NewShader(PassMain, DiffuseSource, lighting); err != nil {
		return out, err
	}
	return out, nil
}

func (r *renderer) initUniforms() error {
	var err error
	cameraSize := camera.GPUCameraUniform{}.Size()
	if r.cameraBuffer, err = r.createUniform("Camera", cameraSize); err != nil {
		return err
	}
	if r.shadowCameraBuffer, err = r.createUniform("Shadow Camera", cameraSize); err != nil {
		return err
	}
	if r.lightsBuffer, err = r.createUniform("Lights", light.GPULights{}.Size()); err != nil {
		return err
	}
	return nil
}

func (r *renderer) createUniform(label string, size uint64) (*wgpu.Buffer, error) {
	buf, err := r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Uniform Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%s uniform: %w", label, err)
	}
	return buf, nil
}

func (r *renderer) initTargets() error {
	var err error
	r.shadowMap, err = texture.NewDepth(r.device, "Shadow Map", r.shadowMapSize, r.shadowMapSize, wgpu.CompareFunctionLess)
	if err != nil {
		return err
	}
	r.depth, err = texture.NewDepth(r.device, "Main Depth", r.width, r.height, wgpu.CompareFunctionLessEqual)
	if err != nil {
		return err
	}

	target, err := r.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Voxelization Target Texture",
		Size: wgpu.Extent3D{
			Width:              r.voxelResolution,
			Height:             r.voxelResolution,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        VoxelTargetFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("voxelization target: %w", err)
	}
	if r.voxelTarget, err = r.device.CreateTextureView(target, nil); err != nil {
		return fmt.Errorf("voxelization target view: %w", err)
	}

	r.volume, err = voxel.NewVolume(r.device, voxel.Cube(r.voxelResolution), voxel.WithLogger(r.logger))
	return err
}

func (r *renderer) initPasses(s passShaders) error {
	cameraBytes := camera.GPUCameraUniform{}.Size()
	lightsBytes := light.GPULights{}.Size()

	shadowLayout, shadowGroup, err := r.createGroup(s.shadow, 0, "Shadow Camera", []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: r.shadowCameraBuffer, Size: cameraBytes},
	})
	if err != nil {
		return err
	}
	voxelCameraLayout, voxelCameraGroup, err := r.createGroup(s.voxelize, 0, "Voxelization Camera", []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: r.cameraBuffer, Size: cameraBytes},
		{Binding: 1, Buffer: r.shadowCameraBuffer, Size: cameraBytes},
	})
	if err != nil {
		return err
	}
	voxelizerLayout, voxelizerGroup, err := r.createGroup(s.voxelize, 1, "Voxelizer", []wgpu.BindGroupEntry{
		{Binding: 0, TextureView: r.shadowMap.View},
		{Binding: 1, Sampler: r.shadowMap.Sampler},
		{Binding: 2, TextureView: r.volume.LevelView(0)},
		{Binding: 3, Buffer: r.lightsBuffer, Size: lightsBytes},
	})
	if err != nil {
		return err
	}
	mainCameraLayout, mainCameraGroup, err := r.createGroup(s.diffuse, 0, "Main Camera", []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: r.cameraBuffer, Size: cameraBytes},
		{Binding: 1, Buffer: r.shadowCameraBuffer, Size: cameraBytes},
	})
	if err != nil {
		return err
	}
	diffuseLayout, diffuseGroup, err := r.createGroup(s.diffuse, 1, "Diffuse", []wgpu.BindGroupEntry{
		{Binding: 0, TextureView: r.shadowMap.View},
		{Binding: 1, Sampler: r.shadowMap.Sampler},
		{Binding: 2, TextureView: r.volume.View()},
		{Binding: 3, Sampler: r.volume.Sampler()},
		{Binding: 4, Buffer: r.lightsBuffer, Size: lightsBytes},
	})
	if err != nil {
		return err
	}
	r.shadowGroup = shadowGroup
	r.voxelCameraGroup = voxelCameraGroup
	r.voxelizerGroup = voxelizerGroup
	r.mainCameraGroup = mainCameraGroup
	r.diffuseGroup = diffuseGroup

	if err := r.registry.Generate(PassShadow, s.shadow,
		pipeline.WithExtraLayouts(shadowLayout),
		pipeline.WithDepthTestEnabled(true),
	); err != nil {
		return err
	}
	if err := r.registry.Generate(PassVoxelize, s.voxelize,
		pipeline.WithExtraLayouts(voxelCameraLayout, voxelizerLayout),
		pipeline.WithColorTargets(wgpu.ColorTargetState{Format: VoxelTargetFormat, WriteMask: colorWriteMaskNone}),
	); err != nil {
		return err
	}
	return r.registry.Generate(PassMain, s.diffuse,
		pipeline.WithExtraLayouts(mainCameraLayout, diffuseLayout),
		pipeline.WithColorTargets(wgpu.ColorTargetState{Format: r.targetFormat, WriteMask: wgpu.ColorWriteMaskAll}),
		pipeline.WithDepthTestEnabled(true),
		pipeline.WithCullBackFaces(true),
	)
}

// createGroup creates the layout s declares for group and a bind group over entries.
func (r *renderer) createGroup(s shader.Shader, group int, label string, entries []wgpu.BindGroupEntry) (*wgpu.BindGroupLayout, *wgpu.BindGroup, error) {
	desc, ok := s.BindGroupLayoutDescriptor(group)
	if !ok {
		return nil, nil, fmt.Errorf("shader %s declares no group %d", s.Key(), group)
	}
	if len(desc.Entries) != len(entries) {
		return nil, nil, fmt.Errorf("shader %s group %d declares %d bindings, %d supplied", s.Key(), group, len(desc.Entries), len(entries))
	}
	desc.Label = label + " Bind Group Layout"
	layout, err := r.device.CreateBindGroupLayout(&desc)
	if err != nil {
		return nil, nil, fmt.Errorf("%s layout: %w", label, err)
	}
	bg, err := r.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label + " Bind Group",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s bind group: %w", label, err)
	}
	return layout, bg, nil
}

func (r *renderer) writeCamera() error {
	return r.device.WriteBuffer(r.cameraBuffer, 0, r.camera.Uniform().Marshal())
}

func (r *renderer) writeLights() error {
	uniform, dropped := light.NewGPULights(r.lights)
	if dropped > 0 {
		r.logger.Warn("lights over the uniform capacity were dropped", "dropped", dropped, "max", light.MaxGPULights)
	}
	if err := r.device.WriteBuffer(r.lightsBuffer, 0, uniform.Marshal()); err != nil {
		return fmt.Errorf("lights uniform: %w", err)
	}

	shadow := camera.GPUCameraUniform{ViewProj: light.ShadowViewProjection(light.DefaultDirection)}
	if sun := light.Sun(r.lights); sun != nil {
		shadow = light.ShadowUniform(sun)
	} else {
		r.logger.Debug("no enabled directional light, shadow map uses the default direction")
	}
	if err := r.device.WriteBuffer(r.shadowCameraBuffer, 0, shadow.Marshal()); err != nil {
		return fmt.Errorf("shadow camera uniform: %w", err)
	}
	return nil
}

func (r *renderer) Prepare() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writeCamera(); err != nil {
		return err
	}
	if !r.staticLighting || r.lightingValid {
		return nil
	}

	cmds, err := r.device.NewCommands("Lighting Encoder")
	if err != nil {
		return err
	}
	if err := r.recordLighting(cmds); err != nil {
		return err
	}
	if err := cmds.Submit(); err != nil {
		return err
	}
	r.lightingValid = true
	return nil
}

func (r *renderer) RenderFrame(target *wgpu.TextureView) error {
	if target == nil {
		return ErrNoTarget
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writeCamera(); err != nil {
		return err
	}
	cmds, err := r.device.NewCommands("Frame Encoder")
	if err != nil {
		return err
	}

	relit := !r.staticLighting || !r.lightingValid
	if relit {
		if err := r.recordLighting(cmds); err != nil {
			return err
		}
	}
	if err := r.recordMain(cmds, target); err != nil {
		return err
	}
	if err := cmds.Submit(); err != nil {
		return err
	}
	if relit {
		r.lightingValid = true
	}
	return nil
}

// recordLighting records the shadow, voxelization and mip passes.
func (r *renderer) recordLighting(cmds device.Commands) error {
	shadow := cmds.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Shadow Pass",
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            r.shadowMap.View,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	shadow.SetBindGroup(0, r.shadowGroup)
	err := r.registry.Draw(PassShadow, shadow)
	shadow.End()
	if err != nil {
		return err
	}

	voxelize := cmds.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Voxelization Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    r.voxelTarget,
				LoadOp:  wgpu.LoadOpLoad,
				StoreOp: wgpu.StoreOpDiscard,
			},
		},
	})
	voxelize.SetBindGroup(0, r.voxelCameraGroup)
	voxelize.SetBindGroup(1, r.voxelizerGroup)
	err = r.registry.Draw(PassVoxelize, voxelize)
	voxelize.End()
	if err != nil {
		return err
	}

	mips := cmds.BeginComputePass("Voxel Mip Pass")
	r.volume.GenerateMips(mips)
	mips.End()

	r.logger.Debug("lighting passes recorded", "mip_levels", r.volume.MipLevelCount())
	return nil
}

func (r *renderer) recordMain(cmds device.Commands, target *wgpu.TextureView) error {
	pass := cmds.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Main Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       target,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: r.clearColor,
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            r.depth.View,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})
	pass.SetBindGroup(0, r.mainCameraGroup)
	pass.SetBindGroup(1, r.diffuseGroup)
	err := r.registry.Draw(PassMain, pass)
	pass.End()
	return err
}

func (r *renderer) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if width == r.width && height == r.height {
		return nil
	}
	depth, err := texture.NewDepth(r.device, "Main Depth", width, height, wgpu.CompareFunctionLessEqual)
	if err != nil {
		return err
	}
	r.depth = depth
	r.width, r.height = width, height
	r.camera.SetAspect(float32(width) / float32(height))
	r.logger.Debug("renderer resized", "width", width, "height", height)
	return nil
}

func (r *renderer) Camera() camera.Camera {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.camera
}

func (r *renderer) SetCamera(cam camera.Camera) {
	if cam == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.camera = cam
}

func (r *renderer) Lights() []light.Light {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lights
}

func (r *renderer) SetLights(lights []light.Light) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lights = lights
	r.lightingValid = false
	return r.writeLights()
}

func (r *renderer) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lightingValid = false
}

func (r *renderer) Registry() pipeline.Registry {
	return r.registry
}

func (r *renderer) Volume() voxel.Volume {
	return r.volume
}
