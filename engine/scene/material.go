package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/texture"
	"github.com/cogentcore/webgpu/wgpu"
)

// MaterialRecord is a material with every optional input resolved.
type MaterialRecord struct {
	BaseColorFactor   [4]float32
	Metallic          float32
	Roughness         float32
	AlphaCutoff       float32
	BaseColor         *texture.Texture
	MetallicRoughness *texture.Texture
	Normal            *texture.Texture
}

// GPU returns the uniform half of the material.
func (m MaterialRecord) GPU() GPUMaterial {
	return GPUMaterial{
		BaseColor:   m.BaseColorFactor,
		Metallic:    m.Metallic,
		Roughness:   m.Roughness,
		AlphaCutoff: m.AlphaCutoff,
	}
}

// ResolveMaterial fills in factor defaults (white, metallic 1, roughness 1, no cutoff) and
// substitutes the default textures for absent maps. A nil material resolves to all defaults.
//
// Parameters:
//   - m: the material, or nil
//   - textures: uploaded textures indexed like Description.Textures
//   - defaults: the fallback textures
//
// Returns:
//   - MaterialRecord: the resolved material
//   - error: ErrLoad if a texture reference is out of range
func ResolveMaterial(m *Material, textures []*texture.Texture, defaults *texture.Defaults) (MaterialRecord, error) {
	rec := MaterialRecord{
		BaseColorFactor:   [4]float32{1, 1, 1, 1},
		Metallic:          1,
		Roughness:         1,
		AlphaCutoff:       0,
		BaseColor:         defaults.White,
		MetallicRoughness: defaults.White,
		Normal:            defaults.FlatNormal,
	}
	if m == nil {
		return rec, nil
	}

	if m.BaseColorFactor != nil {
		rec.BaseColorFactor = *m.BaseColorFactor
	}
	if m.MetallicFactor != nil {
		rec.Metallic = *m.MetallicFactor
	}
	if m.RoughnessFactor != nil {
		rec.Roughness = *m.RoughnessFactor
	}
	if m.AlphaCutoff != nil {
		rec.AlphaCutoff = *m.AlphaCutoff
	}

	var err error
	if rec.BaseColor, err = pickTexture(m.BaseColorTexture, textures, rec.BaseColor); err != nil {
		return rec, fmt.Errorf("material %q base color: %w", m.Name, err)
	}
	if rec.MetallicRoughness, err = pickTexture(m.MetallicRoughnessTexture, textures, rec.MetallicRoughness); err != nil {
		return rec, fmt.Errorf("material %q metallic-roughness: %w", m.Name, err)
	}
	if rec.Normal, err = pickTexture(m.NormalTexture, textures, rec.Normal); err != nil {
		return rec, fmt.Errorf("material %q normal: %w", m.Name, err)
	}
	return rec, nil
}

func pickTexture(ref *int, textures []*texture.Texture, fallback *texture.Texture) (*texture.Texture, error) {
	if ref == nil {
		return fallback, nil
	}
	if *ref < 0 || *ref >= len(textures) {
		return nil, fmt.Errorf("%w: texture %d out of range (%d textures)", ErrLoad, *ref, len(textures))
	}
	if textures[*ref] == nil {
		return fallback, nil
	}
	return textures[*ref], nil
}

// TransformLayoutDescriptor describes the per-node transform group.
func TransformLayoutDescriptor() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "Transform Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: GPUTransform{}.Size(),
				},
			},
		},
	}
}

// MaterialLayoutDescriptor describes the per-primitive material group: the factor uniform
// followed by texture/sampler pairs for base color, metallic-roughness and normal.
func MaterialLayoutDescriptor() wgpu.BindGroupLayoutDescriptor {
	entries := []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: GPUMaterial{}.Size(),
			},
		},
	}
	for i := uint32(0); i < 3; i++ {
		entries = append(entries,
			wgpu.BindGroupLayoutEntry{
				Binding:    1 + i*2,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			wgpu.BindGroupLayoutEntry{
				Binding:    2 + i*2,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		)
	}
	return wgpu.BindGroupLayoutDescriptor{
		Label:   "Material Bind Group Layout",
		Entries: entries,
	}
}
