package pipeline

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-voxel/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrUnknownPass is returned when drawing a pass that was never generated.
	ErrUnknownPass = errors.New("unknown pass")
	// ErrMissingVertexInput is returned when a draw record has no stream for a non-float vertex
	// input the pass shader reads. Missing float inputs are served by constant streams.
	ErrMissingVertexInput = errors.New("draw record does not supply vertex input")
	// ErrUnsupportedShader is returned for shaders without a vertex entry point.
	ErrUnsupportedShader = errors.New("shader cannot drive a render pass")
)

// ConstantStream binds the registry's constant vertex buffer in place of an attribute a draw
// record lacks. Every vertex reads the same value at Offset.
type ConstantStream struct {
	Slot   uint32
	Offset uint64
}

// PipelineSet is the result of generating one pass: one pipeline per scene draw record, in
// record order, plus the first bind group index owned by the scene. Constants is indexed like
// Pipelines and lists the fallback streams of each record.
type PipelineSet struct {
	Pipelines []*wgpu.RenderPipeline
	StartSlot uint32
	Constants [][]ConstantStream
}

// Constant stream values. Missing normals read +Z and missing tangents +X with positive
// handedness; every other float input reads zero.
var constantValues = [12]float32{
	0, 0, 0, 0,
	0, 0, 1, 0,
	1, 0, 0, 1,
}

const (
	constantZeroOffset    = 0
	constantNormalOffset  = 16
	constantTangentOffset = 32
)

type registry struct {
	mu        *sync.RWMutex
	device    device.Device
	scene     scene.Scene
	logger    *slog.Logger
	sets      map[string]PipelineSet
	constants *wgpu.Buffer
}

// Registry owns the pipelines of every named pass over one scene.
type Registry interface {
	// Generate builds one render pipeline per draw record for pass, replacing any previous set
	// registered under the same name. A float input the shader reads but a record lacks is
	// bound to a constant stream after the record's own streams.
	//
	// Parameters:
	//   - pass: the pass name
	//   - s: the pass shader; it must have a vertex entry point and may omit the fragment stage
	//   - opts: per-pass render state
	//
	// Returns:
	//   - error: ErrMissingVertexInput, ErrUnsupportedShader or a device error
	Generate(pass string, s shader.Shader, opts ...PipelineBuilderOption) error

	// Draw records every draw of pass into rp. The caller has already bound the pass-owned
	// groups below StartSlot.
	//
	// Parameters:
	//   - pass: the pass name
	//   - rp: an open render pass
	//
	// Returns:
	//   - error: ErrUnknownPass if pass was never generated
	Draw(pass string, rp device.RenderPass) error

	// Set returns the pipelines generated for pass.
	Set(pass string) (PipelineSet, bool)

	// Passes returns the registered pass names in sorted order.
	Passes() []string
}

var _ Registry = &registry{}

// NewRegistry creates an empty registry for sc.
//
// Parameters:
//   - dev: the device pipelines are created on
//   - sc: the built scene whose draw records the pipelines serve
//   - opts: registry options
//
// Returns:
//   - Registry: the registry
func NewRegistry(dev device.Device, sc scene.Scene, opts ...RegistryBuilderOption) Registry {
	r := &registry{
		mu:     &sync.RWMutex{},
		device: dev,
		scene:  sc,
		logger: slog.Default(),
		sets:   make(map[string]PipelineSet),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegistryBuilderOption configures a Registry.
type RegistryBuilderOption func(*registry)

// WithLogger sets the logger used for pipeline diagnostics.
func WithLogger(logger *slog.Logger) RegistryBuilderOption {
	return func(r *registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func (r *registry) Generate(pass string, s shader.Shader, opts ...PipelineBuilderOption) error {
	if s == nil || !s.HasStage(shader.ShaderTypeVertex) {
		return fmt.Errorf("pass %q: %w", pass, ErrUnsupportedShader)
	}
	p := newPipeline(opts...)
	records := r.scene.DrawRecords()

	missing := make([][]shader.VertexInput, len(records))
	filled := 0
	for i, rec := range records {
		inputs, err := missingVertexInputs(s, rec)
		if err != nil {
			return fmt.Errorf("pass %q record %d: %w", pass, i, err)
		}
		missing[i] = inputs
		if len(inputs) > 0 {
			filled++
		}
	}
	if filled > 0 {
		if err := r.ensureConstants(); err != nil {
			return fmt.Errorf("pass %q constant streams: %w", pass, err)
		}
		r.logger.Warn("pipeline: records missing vertex inputs use constant streams", "pass", pass, "records", filled)
	}

	module, err := r.device.CreateShaderModule(s.Key(), s.Source())
	if err != nil {
		return fmt.Errorf("pass %q: %w", pass, err)
	}

	layouts := make([]*wgpu.BindGroupLayout, 0, len(p.extraLayouts)+2)
	layouts = append(layouts, p.extraLayouts...)
	layouts = append(layouts, r.scene.TransformLayout(), r.scene.MaterialLayout())
	layout, err := r.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            pass + " Pipeline Layout",
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return fmt.Errorf("pass %q: %w", pass, err)
	}

	var fragment *wgpu.FragmentState
	if s.HasStage(shader.ShaderTypeFragment) {
		fragment = &wgpu.FragmentState{
			Module:     module,
			EntryPoint: s.EntryPoint(shader.ShaderTypeFragment),
			Targets:    p.colorTargets,
		}
	}

	set := PipelineSet{
		Pipelines: make([]*wgpu.RenderPipeline, 0, len(records)),
		StartSlot: uint32(len(p.extraLayouts)),
		Constants: make([][]ConstantStream, len(records)),
	}
	for i, rec := range records {
		buffers := rec.VertexLayouts
		if len(missing[i]) > 0 {
			buffers = append([]wgpu.VertexBufferLayout(nil), rec.VertexLayouts...)
			for _, in := range missing[i] {
				set.Constants[i] = append(set.Constants[i], ConstantStream{
					Slot:   uint32(len(buffers)),
					Offset: constantOffset(in.Location),
				})
				buffers = append(buffers, wgpu.VertexBufferLayout{
					ArrayStride: 0,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: in.Format, Offset: 0, ShaderLocation: in.Location},
					},
				})
			}
		}

		created, err := r.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
			Label:  fmt.Sprintf("%s Render Pipeline %d", pass, i),
			Layout: layout,
			Vertex: wgpu.VertexState{
				Module:     module,
				EntryPoint: s.EntryPoint(shader.ShaderTypeVertex),
				Buffers:    buffers,
			},
			Fragment:     fragment,
			Primitive:    p.primitive(),
			DepthStencil: p.depthStencil(),
			Multisample: wgpu.MultisampleState{
				Count: 1,
				Mask:  0xFFFFFFFF,
			},
		})
		if err != nil {
			return fmt.Errorf("pass %q record %d: %w", pass, i, err)
		}
		set.Pipelines = append(set.Pipelines, created)
	}

	r.mu.Lock()
	_, replaced := r.sets[pass]
	r.sets[pass] = set
	r.mu.Unlock()

	r.logger.Debug("pipelines generated", "pass", pass, "count", len(set.Pipelines), "start_slot", set.StartSlot, "replaced", replaced)
	return nil
}

// missingVertexInputs returns the shader inputs no layout of rec provides. Only float inputs
// can be filled from the constant buffer.
func missingVertexInputs(s shader.Shader, rec scene.DrawRecord) ([]shader.VertexInput, error) {
	provided := make(map[uint32]bool)
	for _, l := range rec.VertexLayouts {
		for _, a := range l.Attributes {
			provided[a.ShaderLocation] = true
		}
	}
	var missing []shader.VertexInput
	for _, in := range s.VertexInputs() {
		if provided[in.Location] {
			continue
		}
		if !constantFormat(in.Format) {
			return nil, fmt.Errorf("%w: location %d (%s)", ErrMissingVertexInput, in.Location, in.Name)
		}
		missing = append(missing, in)
	}
	return missing, nil
}

func constantFormat(f wgpu.VertexFormat) bool {
	switch f {
	case wgpu.VertexFormatFloat32, wgpu.VertexFormatFloat32x2, wgpu.VertexFormatFloat32x3, wgpu.VertexFormatFloat32x4:
		return true
	}
	return false
}

func constantOffset(location uint32) uint64 {
	switch scene.AttributeSlot(location) {
	case scene.SlotNormal:
		return constantNormalOffset
	case scene.SlotTangent:
		return constantTangentOffset
	}
	return constantZeroOffset
}

// ensureConstants uploads the constant vertex buffer on first use.
func (r *registry) ensureConstants() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.constants != nil {
		return nil
	}

	data := make([]byte, 0, len(constantValues)*4)
	for _, v := range constantValues {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(v))
	}
	buf, err := r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Pipeline Constant Vertex Buffer",
		Size:  uint64(len(data)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	if err := r.device.WriteBuffer(buf, 0, data); err != nil {
		return err
	}
	r.constants = buf
	return nil
}

func (r *registry) Draw(pass string, rp device.RenderPass) error {
	set, ok := r.Set(pass)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPass, pass)
	}
	for i, rec := range r.scene.DrawRecords() {
		rp.SetPipeline(set.Pipelines[i])
		for _, st := range rec.Streams {
			rp.SetVertexBuffer(st.Slot, r.scene.Buffer(st.Buffer), st.Offset)
		}
		for _, c := range set.Constants[i] {
			rp.SetVertexBuffer(c.Slot, r.constants, c.Offset)
		}
		rp.SetBindGroup(set.StartSlot, r.scene.BindGroup(rec.TransformBinding))
		rp.SetBindGroup(set.StartSlot+1, r.scene.BindGroup(rec.MaterialBinding))
		if rec.Indexed() {
			rp.SetIndexBuffer(r.scene.Buffer(rec.Index.Buffer), rec.Index.Format, rec.Index.Offset)
			rp.DrawIndexed(rec.DrawCount, 1)
		} else {
			rp.Draw(rec.DrawCount, 1)
		}
	}
	return nil
}

func (r *registry) Set(pass string) (PipelineSet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.sets[pass]
	return set, ok
}

func (r *registry) Passes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sets))
	for name := range r.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
