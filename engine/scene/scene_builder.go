package scene

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/texture"
	"github.com/cogentcore/webgpu/wgpu"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(b *builder)

// WithLabel sets the label prefix used for every GPU object the scene creates.
//
// Parameters:
//   - label: the label prefix
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLabel(label string) SceneBuilderOption {
	return func(b *builder) {
		b.label = label
	}
}

// WithLogger sets the logger that receives build diagnostics.
//
// Parameters:
//   - logger: the logger, nil keeps slog.Default()
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) SceneBuilderOption {
	return func(b *builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// builder carries the state of one NewScene call.
type builder struct {
	dev      device.Device
	desc     *Description
	textures []*texture.Texture
	defaults *texture.Defaults
	label    string
	logger   *slog.Logger

	cache     *ResourceCache
	scene     *scene
	visited   []bool
	dropped   int
	transform *wgpu.BindGroupLayout
	material  *wgpu.BindGroupLayout
}

// workItem is one pending node of the traversal together with its parent's world transform.
type workItem struct {
	node      int
	inherited [16]float32
}

// NewScene walks the node forest and builds draw records, transform and material bind groups.
// The build is all or nothing: on error the returned Scene is nil.
//
// Parameters:
//   - dev: the device that allocates every GPU object
//   - desc: the scene description
//   - buffers: decoded data buffers indexed like the description's buffer views reference them
//   - textures: uploaded textures indexed like desc.Textures (entries may be nil)
//   - defaults: fallback textures for absent material maps
//   - options: builder options
//
// Returns:
//   - Scene: the built scene
//   - error: an error wrapping ErrLoad or ErrResource
func NewScene(dev device.Device, desc *Description, buffers [][]byte, textures []*texture.Texture, defaults *texture.Defaults, options ...SceneBuilderOption) (Scene, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: nil description", ErrLoad)
	}
	if defaults == nil || defaults.White == nil || defaults.FlatNormal == nil {
		return nil, fmt.Errorf("%w: default textures are required", ErrLoad)
	}

	b := &builder{
		dev:      dev,
		desc:     desc,
		textures: textures,
		defaults: defaults,
		label:    "Scene",
		logger:   slog.Default(),
		cache:    NewResourceCache(dev, buffers),
		visited:  make([]bool, len(desc.Nodes)),
	}
	for _, opt := range options {
		opt(b)
	}

	if err := b.build(); err != nil {
		return nil, err
	}

	b.logger.Debug("scene built",
		"label", b.label,
		"nodes", len(b.scene.world),
		"draws", len(b.scene.records),
		"buffers", b.cache.Len(),
		"bindGroups", len(b.scene.bindGroups),
		"droppedAttributes", b.dropped,
	)
	return b.scene, nil
}

func (b *builder) build() error {
	transformDesc := TransformLayoutDescriptor()
	transformLayout, err := b.dev.CreateBindGroupLayout(&transformDesc)
	if err != nil {
		return fmt.Errorf("failed to create transform layout: %w", err)
	}
	materialDesc := MaterialLayoutDescriptor()
	materialLayout, err := b.dev.CreateBindGroupLayout(&materialDesc)
	if err != nil {
		return fmt.Errorf("failed to create material layout: %w", err)
	}
	b.transform = transformLayout
	b.material = materialLayout

	b.scene = &scene{
		mu:              &sync.RWMutex{},
		label:           b.label,
		cache:           b.cache,
		transformLayout: transformLayout,
		materialLayout:  materialLayout,
		world:           make(map[int][16]float32),
		materials:       make(map[int]MaterialRecord),
	}

	work := make([]workItem, 0, len(b.desc.Roots))
	for _, root := range b.desc.Roots {
		work = append(work, workItem{node: root, inherited: common.IdentityMatrix()})
	}

	for len(work) > 0 {
		item := work[len(work)-1]
		work = work[:len(work)-1]

		if item.node < 0 || item.node >= len(b.desc.Nodes) {
			return fmt.Errorf("%w: node %d out of range (%d nodes)", ErrLoad, item.node, len(b.desc.Nodes))
		}
		if b.visited[item.node] {
			return fmt.Errorf("%w: node %d is reachable more than once", ErrLoad, item.node)
		}
		b.visited[item.node] = true

		node := b.desc.Nodes[item.node]
		total := common.MulMatrices(item.inherited, node.Local)
		b.scene.world[item.node] = total

		transformID, err := b.transformGroup(item.node, total)
		if err != nil {
			return err
		}

		if node.Mesh != nil {
			if err := b.emitMesh(item.node, *node.Mesh, transformID); err != nil {
				return err
			}
		}

		for _, child := range node.Children {
			work = append(work, workItem{node: child, inherited: total})
		}
	}
	return nil
}

// transformGroup uploads a node's world transform and appends its bind group to the table.
func (b *builder) transformGroup(node int, total [16]float32) (int, error) {
	data := GPUTransform{Model: total}
	buf, err := b.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: fmt.Sprintf("%s Node %d Transform", b.label, node),
		Size:  data.Size(),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return 0, fmt.Errorf("node %d transform buffer: %w", node, err)
	}
	if err := b.dev.WriteBuffer(buf, 0, data.Marshal()); err != nil {
		return 0, fmt.Errorf("node %d transform upload: %w", node, err)
	}

	group, err := b.dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  fmt.Sprintf("%s Node %d Transform Bind Group", b.label, node),
		Layout: b.transform,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buf, Offset: 0, Size: data.Size()},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("node %d transform bind group: %w", node, err)
	}
	return b.appendGroup(group), nil
}

func (b *builder) appendGroup(group *wgpu.BindGroup) int {
	b.scene.bindGroups = append(b.scene.bindGroups, group)
	return len(b.scene.bindGroups) - 1
}

func (b *builder) emitMesh(node, meshIndex, transformID int) error {
	if meshIndex < 0 || meshIndex >= len(b.desc.Meshes) {
		return fmt.Errorf("%w: node %d references mesh %d (%d meshes)", ErrLoad, node, meshIndex, len(b.desc.Meshes))
	}
	mesh := b.desc.Meshes[meshIndex]
	for p, prim := range mesh.Primitives {
		rec, err := b.buildPrimitive(node, prim, transformID)
		if err != nil {
			return fmt.Errorf("mesh %d (%s) primitive %d: %w", meshIndex, mesh.Name, p, err)
		}
		b.scene.records = append(b.scene.records, rec)
	}
	return nil
}

type semanticAttribute struct {
	slot     AttributeSlot
	semantic string
	accessor int
}

// orderedAttributes returns the known attributes of a primitive in slot order and the number of
// unknown ones that were dropped.
func orderedAttributes(attrs map[string]int) ([]semanticAttribute, int) {
	out := make([]semanticAttribute, 0, len(attrs))
	dropped := 0
	for name, acc := range attrs {
		slot := SemanticSlot(name)
		if slot == AttributeUnknown {
			dropped++
			continue
		}
		out = append(out, semanticAttribute{slot: slot, semantic: name, accessor: acc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].slot < out[j].slot })
	return out, dropped
}

func (b *builder) buildPrimitive(node int, prim Primitive, transformID int) (DrawRecord, error) {
	rec := DrawRecord{
		Node:             node,
		TransformBinding: transformID,
	}

	materialID, err := b.materialGroup(prim.Material)
	if err != nil {
		return rec, err
	}
	rec.MaterialBinding = materialID

	attrs, dropped := orderedAttributes(prim.Attributes)
	b.dropped += dropped

	for _, attr := range attrs {
		if b.viewless(attr.accessor) {
			b.dropped++
			continue
		}
		acc, view, err := b.accessorView(attr.accessor)
		if err != nil {
			return rec, fmt.Errorf("attribute %s: %w", attr.semantic, err)
		}
		format, ok := VertexFormat(acc)
		if !ok {
			return rec, fmt.Errorf("%w: attribute %s: unsupported vertex format (component %d, type %s, normalized %t)",
				ErrLoad, attr.semantic, acc.ComponentType, acc.Type, acc.Normalized)
		}

		id, err := b.cache.GetOrCreate(view.Key(), wgpu.BufferUsageVertex)
		if err != nil {
			return rec, fmt.Errorf("attribute %s: %w", attr.semantic, err)
		}

		stride := view.ByteStride
		if stride == 0 {
			stride = acc.ElementSize()
		}
		rec.VertexLayouts = append(rec.VertexLayouts, wgpu.VertexBufferLayout{
			ArrayStride: stride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: format, Offset: 0, ShaderLocation: uint32(attr.slot)},
			},
		})
		rec.Streams = append(rec.Streams, VertexStream{
			Slot:   uint32(len(rec.Streams)),
			Buffer: id,
			Offset: acc.ByteOffset,
		})
		rec.DrawCount = acc.Count
	}

	if len(rec.Streams) == 0 {
		return rec, fmt.Errorf("%w: primitive has no renderable attributes", ErrLoad)
	}

	if prim.Indices != nil {
		acc, view, err := b.accessorView(*prim.Indices)
		if err != nil {
			return rec, fmt.Errorf("indices: %w", err)
		}
		format, ok := IndexFormat(acc)
		if !ok {
			return rec, fmt.Errorf("%w: unsupported index format (component %d, type %s)", ErrLoad, acc.ComponentType, acc.Type)
		}
		id, err := b.cache.GetOrCreate(view.Key(), wgpu.BufferUsageIndex)
		if err != nil {
			return rec, fmt.Errorf("indices: %w", err)
		}
		rec.Index = &IndexRef{Buffer: id, Format: format, Offset: acc.ByteOffset}
		rec.DrawCount = acc.Count
	}

	return rec, nil
}

// viewless reports whether an in-range accessor has no buffer view. Such attributes read as
// zeros and have nothing to bind.
func (b *builder) viewless(index int) bool {
	return index >= 0 && index < len(b.desc.Accessors) && b.desc.Accessors[index].BufferView == nil
}

// accessorView resolves an accessor and the buffer view it reads.
func (b *builder) accessorView(index int) (Accessor, BufferView, error) {
	if index < 0 || index >= len(b.desc.Accessors) {
		return Accessor{}, BufferView{}, fmt.Errorf("%w: accessor %d out of range (%d accessors)", ErrLoad, index, len(b.desc.Accessors))
	}
	acc := b.desc.Accessors[index]
	if acc.BufferView == nil {
		return acc, BufferView{}, fmt.Errorf("%w: accessor %d has no buffer view", ErrLoad, index)
	}
	v := *acc.BufferView
	if v < 0 || v >= len(b.desc.BufferViews) {
		return acc, BufferView{}, fmt.Errorf("%w: accessor %d references buffer view %d (%d views)", ErrLoad, index, v, len(b.desc.BufferViews))
	}
	if acc.ElementSize() == 0 {
		return acc, BufferView{}, fmt.Errorf("%w: accessor %d has unknown layout (component %d, type %q)", ErrLoad, index, acc.ComponentType, acc.Type)
	}
	return acc, b.desc.BufferViews[v], nil
}

// materialGroup resolves a primitive's material and creates its bind group.
func (b *builder) materialGroup(ref *int) (int, error) {
	var m *Material
	if ref != nil {
		if *ref < 0 || *ref >= len(b.desc.Materials) {
			return 0, fmt.Errorf("%w: material %d out of range (%d materials)", ErrLoad, *ref, len(b.desc.Materials))
		}
		m = &b.desc.Materials[*ref]
	}

	rec, err := ResolveMaterial(m, b.textures, b.defaults)
	if err != nil {
		return 0, err
	}

	uniform := rec.GPU()
	buf, err := b.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: b.label + " Material",
		Size:  uniform.Size(),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return 0, fmt.Errorf("material buffer: %w", err)
	}
	if err := b.dev.WriteBuffer(buf, 0, uniform.Marshal()); err != nil {
		return 0, fmt.Errorf("material upload: %w", err)
	}

	group, err := b.dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  b.label + " Material Bind Group",
		Layout: b.material,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buf, Offset: 0, Size: uniform.Size()},
			{Binding: 1, TextureView: rec.BaseColor.View},
			{Binding: 2, Sampler: rec.BaseColor.Sampler},
			{Binding: 3, TextureView: rec.MetallicRoughness.View},
			{Binding: 4, Sampler: rec.MetallicRoughness.Sampler},
			{Binding: 5, TextureView: rec.Normal.View},
			{Binding: 6, Sampler: rec.Normal.Sampler},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("material bind group: %w", err)
	}

	id := b.appendGroup(group)
	b.scene.materials[id] = rec
	return id, nil
}
