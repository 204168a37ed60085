// Package devicetest provides a recording device.Device for tests that exercise the renderer
// without a GPU adapter. Every Create call returns a fresh, distinct handle and records its
// descriptor; every pass command is appended to the submission log.
//
// The returned handles are placeholders. Calling wgpu methods on them directly will crash, so
// code under test must reach the GPU only through device.Device.
package devicetest

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

// BufferRecord is one CreateBuffer call plus every byte written to the buffer since.
type BufferRecord struct {
	Handle *wgpu.Buffer
	Desc   wgpu.BufferDescriptor
	Data   []byte
}

// TextureRecord is one CreateTexture call.
type TextureRecord struct {
	Handle *wgpu.Texture
	Desc   wgpu.TextureDescriptor
	// Pixels holds the last upload through WriteTexture.
	Pixels []byte
}

// ViewRecord is one CreateTextureView call. Desc is nil when the whole texture was viewed.
type ViewRecord struct {
	Handle  *wgpu.TextureView
	Texture *wgpu.Texture
	Desc    *wgpu.TextureViewDescriptor
}

type SamplerRecord struct {
	Handle *wgpu.Sampler
	Desc   wgpu.SamplerDescriptor
}

type ShaderRecord struct {
	Handle *wgpu.ShaderModule
	Label  string
	Source string
}

type BindGroupLayoutRecord struct {
	Handle *wgpu.BindGroupLayout
	Desc   wgpu.BindGroupLayoutDescriptor
}

type BindGroupRecord struct {
	Handle *wgpu.BindGroup
	Desc   wgpu.BindGroupDescriptor
}

type PipelineLayoutRecord struct {
	Handle *wgpu.PipelineLayout
	Desc   wgpu.PipelineLayoutDescriptor
}

type RenderPipelineRecord struct {
	Handle *wgpu.RenderPipeline
	Desc   wgpu.RenderPipelineDescriptor
}

type ComputePipelineRecord struct {
	Handle *wgpu.ComputePipeline
	Desc   wgpu.ComputePipelineDescriptor
}

// Op names a recorded pass command.
type Op string

const (
	OpSetRenderPipeline  Op = "SetRenderPipeline"
	OpSetComputePipeline Op = "SetComputePipeline"
	OpSetBindGroup       Op = "SetBindGroup"
	OpSetVertexBuffer    Op = "SetVertexBuffer"
	OpSetIndexBuffer     Op = "SetIndexBuffer"
	OpDraw               Op = "Draw"
	OpDrawIndexed        Op = "DrawIndexed"
	OpDispatch           Op = "DispatchWorkgroups"
)

// Command is one call recorded on a pass. Only the fields relevant to Op are set.
type Command struct {
	Op              Op
	RenderPipeline  *wgpu.RenderPipeline
	ComputePipeline *wgpu.ComputePipeline
	Group           *wgpu.BindGroup
	Buffer          *wgpu.Buffer
	Slot            uint32
	Offset          uint64
	IndexFormat     wgpu.IndexFormat
	Count           uint32
	Instances       uint32
	X, Y, Z         uint32
}

// Pass is one render or compute pass and the commands recorded on it.
type Pass struct {
	Compute  bool
	Label    string
	Desc     *wgpu.RenderPassDescriptor
	Commands []Command
	Ended    bool
}

// Ops returns the operation names of the pass in recording order.
func (p *Pass) Ops() []Op {
	ops := make([]Op, len(p.Commands))
	for i, c := range p.Commands {
		ops[i] = c.Op
	}
	return ops
}

// Filter returns the commands with the given op.
func (p *Pass) Filter(op Op) []Command {
	var out []Command
	for _, c := range p.Commands {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Submission is one Commands recorder that was submitted.
type Submission struct {
	Label  string
	Passes []*Pass
}

// Device is a recording device.Device. The zero value is not usable; call New.
type Device struct {
	mu *sync.Mutex

	Buffers          []*BufferRecord
	Textures         []*TextureRecord
	Views            []ViewRecord
	Samplers         []SamplerRecord
	Shaders          []ShaderRecord
	BindGroupLayouts []BindGroupLayoutRecord
	BindGroups       []BindGroupRecord
	PipelineLayouts  []PipelineLayoutRecord
	RenderPipelines  []RenderPipelineRecord
	ComputePipelines []ComputePipelineRecord
	Submissions      []*Submission

	// Fail makes the named Device method return the mapped error, e.g. Fail["CreateBuffer"].
	Fail map[string]error
}

var _ device.Device = &Device{}

// New returns an empty recording device.
func New() *Device {
	return &Device{
		mu:   &sync.Mutex{},
		Fail: map[string]error{},
	}
}

func (d *Device) fail(method string) error {
	if err, ok := d.Fail[method]; ok {
		return err
	}
	return nil
}

// BufferFor returns the record for a buffer handle, or nil if the handle was not created here.
func (d *Device) BufferFor(handle *wgpu.Buffer) *BufferRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range d.Buffers {
		if b.Handle == handle {
			return b
		}
	}
	return nil
}

// TextureFor returns the record for a texture handle.
func (d *Device) TextureFor(handle *wgpu.Texture) *TextureRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.Textures {
		if t.Handle == handle {
			return t
		}
	}
	return nil
}

// ViewFor returns the record for a texture view handle.
func (d *Device) ViewFor(handle *wgpu.TextureView) (ViewRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, v := range d.Views {
		if v.Handle == handle {
			return v, true
		}
	}
	return ViewRecord{}, false
}

// BindGroupFor returns the record for a bind group handle.
func (d *Device) BindGroupFor(handle *wgpu.BindGroup) (BindGroupRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, g := range d.BindGroups {
		if g.Handle == handle {
			return g, true
		}
	}
	return BindGroupRecord{}, false
}

// RenderPipelineFor returns the record for a render pipeline handle.
func (d *Device) RenderPipelineFor(handle *wgpu.RenderPipeline) (RenderPipelineRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.RenderPipelines {
		if p.Handle == handle {
			return p, true
		}
	}
	return RenderPipelineRecord{}, false
}

// Passes flattens the passes of every submission in order.
func (d *Device) Passes() []*Pass {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*Pass
	for _, s := range d.Submissions {
		out = append(out, s.Passes...)
	}
	return out
}

func (d *Device) CreateBuffer(desc *wgpu.BufferDescriptor) (*wgpu.Buffer, error) {
	if err := d.fail("CreateBuffer"); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	h := new(wgpu.Buffer)
	d.Buffers = append(d.Buffers, &BufferRecord{Handle: h, Desc: *desc, Data: make([]byte, desc.Size)})
	return h, nil
}

func (d *Device) WriteBuffer(buffer *wgpu.Buffer, offset uint64, data []byte) error {
	if err := d.fail("WriteBuffer"); err != nil {
		return err
	}
	rec := d.BufferFor(buffer)
	if rec == nil {
		return fmt.Errorf("devicetest: write to unknown buffer")
	}
	if offset+uint64(len(data)) > uint64(len(rec.Data)) {
		return fmt.Errorf("devicetest: write of %d bytes at %d overflows buffer %q of %d bytes",
			len(data), offset, rec.Desc.Label, len(rec.Data))
	}
	d.mu.Lock()
	copy(rec.Data[offset:], data)
	d.mu.Unlock()
	return nil
}

func (d *Device) CreateTexture(desc *wgpu.TextureDescriptor) (*wgpu.Texture, error) {
	if err := d.fail("CreateTexture"); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	h := new(wgpu.Texture)
	d.Textures = append(d.Textures, &TextureRecord{Handle: h, Desc: *desc})
	return h, nil
}

func (d *Device) CreateTextureView(texture *wgpu.Texture, desc *wgpu.TextureViewDescriptor) (*wgpu.TextureView, error) {
	if err := d.fail("CreateTextureView"); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	h := new(wgpu.TextureView)
	var copied *wgpu.TextureViewDescriptor
	if desc != nil {
		c := *desc
		copied = &c
	}
	d.Views = append(d.Views, ViewRecord{Handle: h, Texture: texture, Desc: copied})
	return h, nil
}

func (d *Device) WriteTexture(texture *wgpu.Texture, pixels []byte, width, height uint32) error {
	if err := d.fail("WriteTexture"); err != nil {
		return err
	}
	rec := d.TextureFor(texture)
	if rec == nil {
		return fmt.Errorf("devicetest: write to unknown texture")
	}
	if uint64(len(pixels)) < uint64(width)*uint64(height)*4 {
		return fmt.Errorf("devicetest: texture upload needs %d bytes, got %d", width*height*4, len(pixels))
	}
	d.mu.Lock()
	rec.Pixels = append([]byte(nil), pixels...)
	d.mu.Unlock()
	return nil
}

func (d *Device) CreateSampler(desc *wgpu.SamplerDescriptor) (*wgpu.Sampler, error) {
	if err := d.fail("CreateSampler"); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	h := new(wgpu.Sampler)
	d.Samplers = append(d.Samplers, SamplerRecord{Handle: h, Desc: *desc})
	return h, nil
}

func (d *Device) CreateShaderModule(label, source string) (*wgpu.ShaderModule, error) {
	if err := d.fail("CreateShaderModule"); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	h := new(wgpu.ShaderModule)
	d.Shaders = append(d.Shaders, ShaderRecord{Handle: h, Label: label, Source: source})
	return h, nil
}

func (d *Device) CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (*wgpu.BindGroupLayout, error) {
	if err := d.fail("CreateBindGroupLayout"); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	h := new(wgpu.BindGroupLayout)
	d.BindGroupLayouts = append(d.BindGroupLayouts, BindGroupLayoutRecord{Handle: h, Desc: *desc})
	return h, nil
}

func (d *Device) CreateBindGroup(desc *wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error) {
	if err := d.fail("CreateBindGroup"); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	h := new(wgpu.BindGroup)
	d.BindGroups = append(d.BindGroups, BindGroupRecord{Handle: h, Desc: *desc})
	return h, nil
}

func (d *Device) CreatePipelineLayout(desc *wgpu.PipelineLayoutDescriptor) (*wgpu.PipelineLayout, error) {
	if err := d.fail("CreatePipelineLayout"); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	h := new(wgpu.PipelineLayout)
	d.PipelineLayouts = append(d.PipelineLayouts, PipelineLayoutRecord{Handle: h, Desc: *desc})
	return h, nil
}

func (d *Device) CreateRenderPipeline(desc *wgpu.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	if err := d.fail("CreateRenderPipeline"); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	h := new(wgpu.RenderPipeline)
	d.RenderPipelines = append(d.RenderPipelines, RenderPipelineRecord{Handle: h, Desc: *desc})
	return h, nil
}

func (d *Device) CreateComputePipeline(desc *wgpu.ComputePipelineDescriptor) (*wgpu.ComputePipeline, error) {
	if err := d.fail("CreateComputePipeline"); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	h := new(wgpu.ComputePipeline)
	d.ComputePipelines = append(d.ComputePipelines, ComputePipelineRecord{Handle: h, Desc: *desc})
	return h, nil
}

func (d *Device) NewCommands(label string) (device.Commands, error) {
	if err := d.fail("NewCommands"); err != nil {
		return nil, err
	}
	return &Commands{dev: d, sub: &Submission{Label: label}}, nil
}

// Commands records passes until Submit appends them to the device's submission log.
type Commands struct {
	dev       *Device
	sub       *Submission
	submitted bool
}

func (c *Commands) BeginRenderPass(desc *wgpu.RenderPassDescriptor) device.RenderPass {
	p := &Pass{Desc: desc}
	if desc != nil {
		p.Label = desc.Label
	}
	c.sub.Passes = append(c.sub.Passes, p)
	return &RenderPass{pass: p}
}

func (c *Commands) BeginComputePass(label string) device.ComputePass {
	p := &Pass{Compute: true, Label: label}
	c.sub.Passes = append(c.sub.Passes, p)
	return &ComputePass{pass: p}
}

func (c *Commands) Submit() error {
	if c.submitted {
		return fmt.Errorf("devicetest: commands %q submitted twice", c.sub.Label)
	}
	if err := c.dev.fail("Submit"); err != nil {
		return err
	}
	for _, p := range c.sub.Passes {
		if !p.Ended {
			return fmt.Errorf("devicetest: pass %q not ended before submit", p.Label)
		}
	}
	c.submitted = true
	c.dev.mu.Lock()
	c.dev.Submissions = append(c.dev.Submissions, c.sub)
	c.dev.mu.Unlock()
	return nil
}

// RenderPass records render pass commands.
type RenderPass struct {
	pass *Pass
}

func (r *RenderPass) SetPipeline(pipeline *wgpu.RenderPipeline) {
	r.pass.Commands = append(r.pass.Commands, Command{Op: OpSetRenderPipeline, RenderPipeline: pipeline})
}

func (r *RenderPass) SetBindGroup(index uint32, group *wgpu.BindGroup) {
	r.pass.Commands = append(r.pass.Commands, Command{Op: OpSetBindGroup, Slot: index, Group: group})
}

func (r *RenderPass) SetVertexBuffer(slot uint32, buffer *wgpu.Buffer, offset uint64) {
	r.pass.Commands = append(r.pass.Commands, Command{Op: OpSetVertexBuffer, Slot: slot, Buffer: buffer, Offset: offset})
}

func (r *RenderPass) SetIndexBuffer(buffer *wgpu.Buffer, format wgpu.IndexFormat, offset uint64) {
	r.pass.Commands = append(r.pass.Commands, Command{Op: OpSetIndexBuffer, Buffer: buffer, IndexFormat: format, Offset: offset})
}

func (r *RenderPass) Draw(vertexCount, instanceCount uint32) {
	r.pass.Commands = append(r.pass.Commands, Command{Op: OpDraw, Count: vertexCount, Instances: instanceCount})
}

func (r *RenderPass) DrawIndexed(indexCount, instanceCount uint32) {
	r.pass.Commands = append(r.pass.Commands, Command{Op: OpDrawIndexed, Count: indexCount, Instances: instanceCount})
}

func (r *RenderPass) End() {
	r.pass.Ended = true
}

// ComputePass records compute pass commands.
type ComputePass struct {
	pass *Pass
}

func (c *ComputePass) SetPipeline(pipeline *wgpu.ComputePipeline) {
	c.pass.Commands = append(c.pass.Commands, Command{Op: OpSetComputePipeline, ComputePipeline: pipeline})
}

func (c *ComputePass) SetBindGroup(index uint32, group *wgpu.BindGroup) {
	c.pass.Commands = append(c.pass.Commands, Command{Op: OpSetBindGroup, Slot: index, Group: group})
}

func (c *ComputePass) DispatchWorkgroups(x, y, z uint32) {
	c.pass.Commands = append(c.pass.Commands, Command{Op: OpDispatch, X: x, Y: y, Z: z})
}

func (c *ComputePass) End() {
	c.pass.Ended = true
}
