package shader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const renderSource = `
//@oxy:include camera
//@oxy:include lights

/* block comment with @group(9) @binding(9) var<uniform> ghost: f32; */
@group(0) @binding(1) var<uniform> light_camera: CameraUniform;
@group(0) @binding(0) var<uniform> camera: CameraUniform;

@group(1) @binding(0) var shadow_map: texture_depth_2d;
@group(1) @binding(1) var shadow_sampler: sampler_comparison;
@group(1) @binding(2) var voxels: texture_storage_3d<rgba16float, write>;
@group(1) @binding(3) var<uniform> lights: Lights;
@group(1) @binding(4) var albedo: texture_2d<f32>;
@group(1) @binding(5) var albedo_sampler: sampler;

struct VertexInput {
    @location(2) normal: vec3<f32>,
    @location(0) position: vec3<f32>,
    @location(1) tex_coords: vec2<f32>,
};

struct VertexOutput {
    @builtin(position) clip_position: vec4<f32>,
    @location(0) world_position: vec3<f32>,
};

@vertex
fn vs_main(in: VertexInput, @builtin(vertex_index) index: u32) -> VertexOutput {
    var out: VertexOutput;
    out.clip_position = camera.view_proj * vec4<f32>(in.position, 1.0);
    out.world_position = in.position;
    return out;
}

// @fragment fn commented_out() {}
@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<u32> {
    return vec4<u32>(0u);
}
`

const mipSource = `
@group(0) @binding(0) var src: texture_3d<f32>;
@group(0) @binding(1) var dst: texture_storage_3d<rgba16float, write>;

@compute @workgroup_size(8, 4)
fn comp_main(@builtin(global_invocation_id) id: vec3<u32>) {
}
`

func TestNewShader_RenderStages(t *testing.T) {
	s, err := NewShader("voxelize", renderSource)
	require.NoError(t, err)

	assert.Equal(t, "voxelize", s.Key())
	assert.True(t, s.HasStage(ShaderTypeVertex))
	assert.True(t, s.HasStage(ShaderTypeFragment))
	assert.False(t, s.IsCompute())
	assert.Equal(t, "vs_main", s.EntryPoint(ShaderTypeVertex))
	assert.Equal(t, "fs_main", s.EntryPoint(ShaderTypeFragment))
	assert.Equal(t, "", s.EntryPoint(ShaderTypeCompute))
	assert.Equal(t, [3]uint32{}, s.WorkgroupSize())
}

func TestNewShader_ExpandsIncludes(t *testing.T) {
	s, err := NewShader("voxelize", renderSource)
	require.NoError(t, err)

	assert.Contains(t, s.Source(), "struct CameraUniform")
	assert.Contains(t, s.Source(), "struct Lights")
	assert.NotContains(t, s.Source(), "@oxy:include")
}

func TestNewShader_BindGroupLayouts(t *testing.T) {
	s, err := NewShader("voxelize", renderSource)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, s.Groups())
	_, ok := s.BindGroupLayoutDescriptor(9)
	assert.False(t, ok)

	g0, ok := s.BindGroupLayoutDescriptor(0)
	require.True(t, ok)
	require.Len(t, g0.Entries, 2)
	assert.Equal(t, uint32(0), g0.Entries[0].Binding)
	assert.Equal(t, uint32(1), g0.Entries[1].Binding)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, g0.Entries[0].Buffer.Type)
	assert.Equal(t, uint64(80), g0.Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, g0.Entries[0].Visibility)
	assert.Equal(t, "light_camera", s.BindGroupVarName(0, 1))

	g1, ok := s.BindGroupLayoutDescriptor(1)
	require.True(t, ok)
	require.Len(t, g1.Entries, 6)

	depth := g1.Entries[0]
	assert.Equal(t, wgpu.TextureSampleTypeDepth, depth.Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2D, depth.Texture.ViewDimension)

	assert.Equal(t, wgpu.SamplerBindingTypeComparison, g1.Entries[1].Sampler.Type)

	storage := g1.Entries[2]
	assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, storage.StorageTexture.Access)
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, storage.StorageTexture.Format)
	assert.Equal(t, wgpu.TextureViewDimension3D, storage.StorageTexture.ViewDimension)
	assert.Equal(t, wgpu.ShaderStageFragment, storage.Visibility)

	lights := g1.Entries[3]
	assert.Equal(t, uint64(272), lights.Buffer.MinBindingSize)

	albedo := g1.Entries[4]
	assert.Equal(t, wgpu.TextureSampleTypeFloat, albedo.Texture.SampleType)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, g1.Entries[5].Sampler.Type)
}

func TestNewShader_VertexInputsFromStruct(t *testing.T) {
	s, err := NewShader("voxelize", renderSource)
	require.NoError(t, err)

	inputs := s.VertexInputs()
	require.Len(t, inputs, 3)
	assert.Equal(t, VertexInput{Location: 0, Name: "position", Format: wgpu.VertexFormatFloat32x3}, inputs[0])
	assert.Equal(t, VertexInput{Location: 1, Name: "tex_coords", Format: wgpu.VertexFormatFloat32x2}, inputs[1])
	assert.Equal(t, VertexInput{Location: 2, Name: "normal", Format: wgpu.VertexFormatFloat32x3}, inputs[2])
}

func TestNewShader_VertexInputsFromParameters(t *testing.T) {
	src := `
@vertex
fn vs_main(@location(0) position: vec3<f32>, @location(3) tangent: vec4<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position, 1.0);
}`
	s, err := NewShader("depth", src)
	require.NoError(t, err)

	assert.False(t, s.HasStage(ShaderTypeFragment))
	inputs := s.VertexInputs()
	require.Len(t, inputs, 2)
	assert.Equal(t, uint32(3), inputs[1].Location)
	assert.Equal(t, wgpu.VertexFormatFloat32x4, inputs[1].Format)
}

func TestNewShader_VertexOnlyVisibility(t *testing.T) {
	src := `
//@oxy:include camera
@group(0) @binding(0) var<uniform> light_camera: CameraUniform;
@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return light_camera.view_proj * vec4<f32>(position, 1.0);
}`
	s, err := NewShader("shadow", src)
	require.NoError(t, err)

	g0, ok := s.BindGroupLayoutDescriptor(0)
	require.True(t, ok)
	assert.Equal(t, wgpu.ShaderStageVertex, g0.Entries[0].Visibility)
}

func TestNewShader_Compute(t *testing.T) {
	s, err := NewShader("mip", mipSource)
	require.NoError(t, err)

	assert.True(t, s.IsCompute())
	assert.Equal(t, "comp_main", s.EntryPoint(ShaderTypeCompute))
	assert.Equal(t, [3]uint32{8, 4, 1}, s.WorkgroupSize())
	assert.Empty(t, s.VertexInputs())

	g0, ok := s.BindGroupLayoutDescriptor(0)
	require.True(t, ok)
	require.Len(t, g0.Entries, 2)
	for _, e := range g0.Entries {
		assert.Equal(t, wgpu.ShaderStageCompute, e.Visibility)
	}
	assert.Equal(t, wgpu.TextureViewDimension3D, g0.Entries[0].Texture.ViewDimension)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, g0.Entries[0].Texture.SampleType)
	assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, g0.Entries[1].StorageTexture.Access)
}

func TestNewShader_Errors(t *testing.T) {
	_, err := NewShader("none", "struct Foo { a: f32, };")
	assert.ErrorIs(t, err, errNoEntryPoint)

	_, err = NewShader("bad", "//@oxy:include nope\n@compute @workgroup_size(1) fn main() {}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown @oxy:include "nope"`)

	assert.Panics(t, func() {
		MustNew("none", "")
	})
}

func TestWithInclude(t *testing.T) {
	src := "//@oxy:include params\n//@oxy:include params\n@group(0) @binding(0) var<uniform> p: Params;\n@compute @workgroup_size(1) fn main() {}"
	s, err := NewShader("custom", src, WithInclude("params", "struct Params {\n    scale: vec3<f32>,\n};\n"))
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(s.Source(), "struct Params"))
	g0, _ := s.BindGroupLayoutDescriptor(0)
	assert.Equal(t, uint64(16), g0.Entries[0].Buffer.MinBindingSize)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mip.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(mipSource), 0o644))

	s, err := Load("mip", path)
	require.NoError(t, err)
	assert.True(t, s.IsCompute())

	_, err = Load("missing", filepath.Join(t.TempDir(), "missing.wgsl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolveTypeLayout(t *testing.T) {
	known := map[string]wgslTypeLayout{"Light": {32, 16}}

	tests := []struct {
		typeName string
		size     uint64
		ok       bool
	}{
		{"f32", 4, true},
		{"vec3<f32>", 12, true},
		{"array<Light, 8>", 256, true},
		{"array<vec3<f32>, 2>", 32, true},
		{"array<Light>", 32, true},
		{"Unknown", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			l, ok := resolveTypeLayout(tt.typeName, known)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.size, l.size)
		})
	}
}
