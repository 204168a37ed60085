package loader

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/Carmen-Shannon/oxy-voxel/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	errSparseAccessor       = errors.New("sparse accessors are not supported")
	errUnsupportedExtension = errors.New("required extension is not supported")
)

// convertDocument maps a parsed glTF document onto a scene description. Index references are
// carried over unchanged; the scene builder validates them.
//
// Parameters:
//   - doc: the parsed document
//   - logger: receives warnings about skipped content
//
// Returns:
//   - *scene.Description: the converted description
//   - error: error if the document uses features the scene cannot represent
func convertDocument(doc *gltfDocument, logger *slog.Logger) (*scene.Description, error) {
	if len(doc.ExtensionsRequired) > 0 {
		return nil, fmt.Errorf("%w: %v", errUnsupportedExtension, doc.ExtensionsRequired)
	}

	desc := &scene.Description{
		Nodes:       make([]scene.Node, len(doc.Nodes)),
		Meshes:      make([]scene.Mesh, len(doc.Meshes)),
		Accessors:   make([]scene.Accessor, len(doc.Accessors)),
		BufferViews: make([]scene.BufferView, len(doc.BufferViews)),
		Materials:   make([]scene.Material, len(doc.Materials)),
		Textures:    make([]scene.Texture, len(doc.Textures)),
	}

	for i, n := range doc.Nodes {
		desc.Nodes[i] = scene.Node{
			Name:     n.Name,
			Local:    nodeLocalMatrix(n),
			Children: n.Children,
			Mesh:     n.Mesh,
		}
	}
	desc.Roots = sceneRoots(doc)

	for i, m := range doc.Meshes {
		mesh := scene.Mesh{Name: m.Name}
		for j, p := range m.Primitives {
			if p.Mode != nil && *p.Mode != gltfPrimitiveModeTriangles {
				logger.Warn("loader: skipping non-triangle primitive", "mesh", i, "primitive", j, "mode", *p.Mode)
				continue
			}
			mesh.Primitives = append(mesh.Primitives, scene.Primitive{
				Attributes: p.Attributes,
				Indices:    p.Indices,
				Material:   p.Material,
			})
		}
		desc.Meshes[i] = mesh
	}

	for i, a := range doc.Accessors {
		if a.Sparse != nil {
			return nil, fmt.Errorf("accessor %d: %w", i, errSparseAccessor)
		}
		desc.Accessors[i] = scene.Accessor{
			BufferView:    a.BufferView,
			ByteOffset:    a.ByteOffset,
			ComponentType: scene.ComponentType(a.ComponentType),
			Type:          scene.AccessorType(a.Type),
			Normalized:    a.Normalized,
			Count:         a.Count,
		}
	}

	for i, v := range doc.BufferViews {
		desc.BufferViews[i] = scene.BufferView{
			Buffer:     v.Buffer,
			ByteOffset: v.ByteOffset,
			ByteLength: v.ByteLength,
			ByteStride: v.ByteStride,
		}
	}

	for i, m := range doc.Materials {
		desc.Materials[i] = convertMaterial(m)
	}

	for i, t := range doc.Textures {
		if t.Source == nil {
			return nil, fmt.Errorf("texture %d has no image source", i)
		}
		sampler := common.DefaultSamplerStagingData()
		if t.Sampler != nil {
			if *t.Sampler < 0 || *t.Sampler >= len(doc.Samplers) {
				return nil, fmt.Errorf("texture %d references sampler %d (%d samplers)", i, *t.Sampler, len(doc.Samplers))
			}
			sampler = gltfSamplerToStagingData(doc.Samplers[*t.Sampler])
		}
		desc.Textures[i] = scene.Texture{Image: *t.Source, Sampler: sampler}
	}

	return desc, nil
}

// nodeLocalMatrix returns the column-major local transform of a node. An explicit matrix wins
// over the TRS properties; missing TRS components take their identity values.
func nodeLocalMatrix(n gltfNode) [16]float32 {
	if n.Matrix != nil {
		return *n.Matrix
	}
	t := [3]float32{0, 0, 0}
	r := [4]float32{0, 0, 0, 1}
	s := [3]float32{1, 1, 1}
	if n.Translation != nil {
		t = *n.Translation
	}
	if n.Rotation != nil {
		r = *n.Rotation
	}
	if n.Scale != nil {
		s = *n.Scale
	}
	return common.ComposeTRS(t, r, s)
}

// sceneRoots picks the root nodes: the default scene, else the first scene, else every node
// that no other node lists as a child.
func sceneRoots(doc *gltfDocument) []int {
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			idx = *doc.Scene
		}
		return doc.Scenes[idx].Nodes
	}

	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots
}

func convertMaterial(m gltfMaterial) scene.Material {
	out := scene.Material{Name: m.Name}
	if pbr := m.PbrMetallicRoughness; pbr != nil {
		out.BaseColorFactor = pbr.BaseColorFactor
		out.MetallicFactor = pbr.MetallicFactor
		out.RoughnessFactor = pbr.RoughnessFactor
		out.BaseColorTexture = textureRef(pbr.BaseColorTexture)
		out.MetallicRoughnessTexture = textureRef(pbr.MetallicRoughnessTexture)
	}
	out.NormalTexture = textureRef(m.NormalTexture)

	// Declared cutoffs pass through whatever the alpha mode; an absent one resolves to 0.
	out.AlphaCutoff = m.AlphaCutoff
	return out
}

func textureRef(info *gltfTextureInfo) *int {
	if info == nil {
		return nil
	}
	idx := info.Index
	return &idx
}

// gltfSamplerToStagingData converts a glTF sampler into sampler staging data, starting from the
// glTF defaults of linear filtering and repeat addressing.
func gltfSamplerToStagingData(s gltfSampler) common.SamplerStagingData {
	result := common.DefaultSamplerStagingData()

	if s.MagFilter != nil {
		switch *s.MagFilter {
		case gltfFilterNearest:
			result.MagFilter = wgpu.FilterModeNearest
		case gltfFilterLinear:
			result.MagFilter = wgpu.FilterModeLinear
		}
	}

	if s.MinFilter != nil {
		switch *s.MinFilter {
		case gltfFilterNearest, gltfFilterNearestMipmapNearest, gltfFilterNearestMipmapLinear:
			result.MinFilter = wgpu.FilterModeNearest
		case gltfFilterLinear, gltfFilterLinearMipmapNearest, gltfFilterLinearMipmapLinear:
			result.MinFilter = wgpu.FilterModeLinear
		}
		switch *s.MinFilter {
		case gltfFilterNearestMipmapNearest, gltfFilterLinearMipmapNearest, gltfFilterNearest, gltfFilterLinear:
			result.MipmapFilter = wgpu.MipmapFilterModeNearest
		case gltfFilterNearestMipmapLinear, gltfFilterLinearMipmapLinear:
			result.MipmapFilter = wgpu.MipmapFilterModeLinear
		}
	}

	if s.WrapS != nil {
		result.AddressModeU = gltfWrapToAddressMode(*s.WrapS)
	}
	if s.WrapT != nil {
		result.AddressModeV = gltfWrapToAddressMode(*s.WrapT)
	}
	return result
}

func gltfWrapToAddressMode(wrap int) wgpu.AddressMode {
	switch wrap {
	case gltfWrapClampToEdge:
		return wgpu.AddressModeClampToEdge
	case gltfWrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeRepeat
	}
}
