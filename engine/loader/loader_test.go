package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/device/devicetest"
	"github.com/Carmen-Shannon/oxy-voxel/engine/scene"
	"github.com/Carmen-Shannon/oxy-voxel/engine/scene/scenetest"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func float32Ptr(f float32) *float32 { return &f }

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{G: 255, A: 255})
	img.Set(0, 1, color.NRGBA{B: 255, A: 255})
	img.Set(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// quadDocument describes the scenetest quad as a glTF document with one textured material.
// The geometry buffer and the image source are left for the caller to fill in.
func quadDocument(bufferLength int) *gltfDocument {
	return &gltfDocument{
		Asset:  gltfAsset{Version: "2.0"},
		Scene:  intPtr(0),
		Scenes: []gltfScene{{Nodes: []int{0}}},
		Nodes: []gltfNode{{
			Name:        "quad",
			Mesh:        intPtr(0),
			Translation: &[3]float32{1, 2, 3},
		}},
		Meshes: []gltfMesh{{
			Name: "quad",
			Primitives: []gltfPrimitive{{
				Attributes: map[string]int{"POSITION": 0, "NORMAL": 1, "TEXCOORD_0": 2},
				Indices:    intPtr(3),
				Material:   intPtr(0),
			}},
		}},
		Accessors: []gltfAccessor{
			{BufferView: intPtr(0), ComponentType: 5126, Count: 4, Type: "VEC3"},
			{BufferView: intPtr(1), ComponentType: 5126, Count: 4, Type: "VEC3"},
			{BufferView: intPtr(2), ComponentType: 5126, Count: 4, Type: "VEC2"},
			{BufferView: intPtr(3), ComponentType: 5123, Count: 6, Type: "SCALAR"},
		},
		BufferViews: []gltfBufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 48},
			{Buffer: 0, ByteOffset: 48, ByteLength: 48},
			{Buffer: 0, ByteOffset: 96, ByteLength: 32},
			{Buffer: 0, ByteOffset: 128, ByteLength: 12},
		},
		Buffers: []gltfBuffer{{ByteLength: uint64(bufferLength)}},
		Materials: []gltfMaterial{{
			Name: "checker",
			PbrMetallicRoughness: &gltfPbrMetallicRoughness{
				BaseColorTexture: &gltfTextureInfo{Index: 0},
			},
			AlphaMode:   "MASK",
			AlphaCutoff: float32Ptr(0.25),
		}},
		Textures: []gltfTexture{{Sampler: intPtr(0), Source: intPtr(0)}},
		Samplers: []gltfSampler{{
			MagFilter: intPtr(gltfFilterNearest),
			MinFilter: intPtr(gltfFilterNearestMipmapNearest),
			WrapS:     intPtr(gltfWrapClampToEdge),
			WrapT:     intPtr(gltfWrapMirroredRepeat),
		}},
		Images: []gltfImage{{}},
	}
}

func quadBuffer() []byte {
	_, buffers := scenetest.QuadDescription()
	return buffers[0]
}

func dataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func marshal(t *testing.T, doc *gltfDocument) []byte {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

// buildGLB packs a document and a binary chunk into a GLB container.
func buildGLB(t *testing.T, doc *gltfDocument, bin []byte) []byte {
	t.Helper()
	js := marshal(t, doc)
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}

	var out bytes.Buffer
	total := uint32(12 + 8 + len(js) + 8 + len(bin))
	require.NoError(t, binary.Write(&out, binary.LittleEndian, gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: total}))
	require.NoError(t, binary.Write(&out, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(js)), ChunkType: gltfGLBChunkJSON}))
	out.Write(js)
	require.NoError(t, binary.Write(&out, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(bin)), ChunkType: gltfGLBChunkBIN}))
	out.Write(bin)
	return out.Bytes()
}

func TestLoadBytes_DataURIs(t *testing.T) {
	buf := quadBuffer()
	doc := quadDocument(len(buf))
	doc.Buffers[0].URI = dataURI("application/octet-stream", buf)
	doc.Images[0].URI = dataURI("image/png", encodePNG(t))

	asset, err := NewLoader(WithWorkers(2)).LoadBytes("quad", marshal(t, doc), "")
	require.NoError(t, err)

	require.Len(t, asset.Buffers, 1)
	assert.Equal(t, buf, asset.Buffers[0])

	desc := asset.Description
	assert.Equal(t, []int{0}, desc.Roots)
	require.Len(t, desc.Nodes, 1)
	assert.Equal(t, float32(1), desc.Nodes[0].Local[12])
	assert.Equal(t, float32(2), desc.Nodes[0].Local[13])
	assert.Equal(t, float32(3), desc.Nodes[0].Local[14])
	assert.Equal(t, float32(1), desc.Nodes[0].Local[0])

	require.Len(t, desc.Accessors, 4)
	assert.Equal(t, scene.ComponentUnsignedShort, desc.Accessors[3].ComponentType)
	assert.Equal(t, scene.AccessorScalar, desc.Accessors[3].Type)

	require.Len(t, desc.Materials, 1)
	require.NotNil(t, desc.Materials[0].BaseColorTexture)
	assert.Equal(t, 0, *desc.Materials[0].BaseColorTexture)
	require.NotNil(t, desc.Materials[0].AlphaCutoff)
	assert.Equal(t, float32(0.25), *desc.Materials[0].AlphaCutoff)

	require.Len(t, desc.Textures, 1)
	sampler := desc.Textures[0].Sampler
	assert.Equal(t, wgpu.FilterModeNearest, sampler.MagFilter)
	assert.Equal(t, wgpu.FilterModeNearest, sampler.MinFilter)
	assert.Equal(t, wgpu.MipmapFilterModeNearest, sampler.MipmapFilter)
	assert.Equal(t, wgpu.AddressModeClampToEdge, sampler.AddressModeU)
	assert.Equal(t, wgpu.AddressModeMirrorRepeat, sampler.AddressModeV)
	assert.Equal(t, wgpu.AddressModeRepeat, sampler.AddressModeW)

	require.Len(t, asset.Images, 1)
	img := asset.Images[0]
	assert.True(t, img.Valid())
	assert.Equal(t, []byte{255, 0, 0, 255}, img.Pixels[0:4])
	assert.Equal(t, []byte{255, 255, 255, 255}, img.Pixels[12:16])
}

func TestLoadBytes_GLB(t *testing.T) {
	buf := quadBuffer()
	pngData := encodePNG(t)
	bin := append(append([]byte{}, buf...), pngData...)

	doc := quadDocument(len(bin))
	doc.BufferViews = append(doc.BufferViews, gltfBufferView{
		Buffer:     0,
		ByteOffset: uint64(len(buf)),
		ByteLength: uint64(len(pngData)),
	})
	doc.Images[0] = gltfImage{BufferView: intPtr(4), MimeType: "image/png"}

	asset, err := NewLoader().LoadBytes("quad.glb", buildGLB(t, doc, bin), "")
	require.NoError(t, err)

	require.Len(t, asset.Buffers, 1)
	assert.Equal(t, bin, asset.Buffers[0])
	require.Len(t, asset.Images, 1)
	assert.Equal(t, uint32(2), asset.Images[0].Width)
	assert.Equal(t, uint32(2), asset.Images[0].Height)
}

func TestLoad_ExternalFilesAndCache(t *testing.T) {
	dir := t.TempDir()
	buf := quadBuffer()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quad.bin"), buf, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "textures"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "textures", "checker.png"), encodePNG(t), 0o644))

	doc := quadDocument(len(buf))
	doc.Buffers[0].URI = "quad.bin"
	doc.Images[0].URI = "textures/checker.png"
	path := filepath.Join(dir, "quad.gltf")
	require.NoError(t, os.WriteFile(path, marshal(t, doc), 0o644))

	l := NewLoader()
	first, err := l.Load(path)
	require.NoError(t, err)
	assert.True(t, first.Images[0].Valid())

	second, err := l.Load(path)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Same(t, first, l.Get(path))
	assert.Len(t, l.Assets(), 1)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	buf := quadBuffer()

	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, data, 0o644))
		return p
	}
	withBuffer := func(mutate func(*gltfDocument)) []byte {
		doc := quadDocument(len(buf))
		doc.Buffers[0].URI = dataURI("application/octet-stream", buf)
		doc.Images = nil
		doc.Textures = nil
		doc.Materials = nil
		doc.Meshes[0].Primitives[0].Material = nil
		mutate(doc)
		return marshal(t, doc)
	}

	tests := []struct {
		name string
		path string
	}{
		{"unsupported extension", write("quad.obj", []byte("o quad"))},
		{"missing file", filepath.Join(dir, "missing.gltf")},
		{"malformed json", write("broken.gltf", []byte("{"))},
		{"wrong version", write("v1.gltf", withBuffer(func(d *gltfDocument) { d.Asset.Version = "1.0" }))},
		{"bad glb magic", write("bad.glb", []byte("not a glb file"))},
		{"short buffer", write("short.gltf", withBuffer(func(d *gltfDocument) { d.Buffers[0].ByteLength = 4096 }))},
		{"sparse accessor", write("sparse.gltf", withBuffer(func(d *gltfDocument) { d.Accessors[0].Sparse = &gltfSparseInfo{Count: 1} }))},
		{"required extension", write("ext.gltf", withBuffer(func(d *gltfDocument) { d.ExtensionsRequired = []string{"KHR_draco_mesh_compression"} }))},
		{"missing buffer source", write("nobuf.gltf", withBuffer(func(d *gltfDocument) { d.Buffers[0].URI = "" }))},
		{"bad data uri", write("uri.gltf", withBuffer(func(d *gltfDocument) { d.Buffers[0].URI = "data:application/octet-stream,plain" }))},
		{"texture without source", write("tex.gltf", withBuffer(func(d *gltfDocument) { d.Textures = []gltfTexture{{}} }))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLoader()
			asset, err := l.Load(tt.path)
			assert.ErrorIs(t, err, scene.ErrLoad)
			assert.Nil(t, asset)
			assert.Empty(t, l.Assets())
		})
	}
}

func TestLoadBytes_BadImageIsSkipped(t *testing.T) {
	buf := quadBuffer()
	doc := quadDocument(len(buf))
	doc.Buffers[0].URI = dataURI("application/octet-stream", buf)
	doc.Images[0].URI = dataURI("image/png", []byte("definitely not a png"))

	asset, err := NewLoader().LoadBytes("quad", marshal(t, doc), "")
	require.NoError(t, err)
	require.Len(t, asset.Images, 1)
	assert.Zero(t, asset.Images[0].Width)
	assert.Nil(t, asset.Images[0].Pixels)
}

func TestLoadBytes_SkipsNonTrianglePrimitives(t *testing.T) {
	buf := quadBuffer()
	doc := quadDocument(len(buf))
	doc.Buffers[0].URI = dataURI("application/octet-stream", buf)
	doc.Images = nil
	doc.Textures = nil
	doc.Materials = nil
	lines := doc.Meshes[0].Primitives[0]
	lines.Mode = intPtr(1)
	lines.Material = nil
	doc.Meshes[0].Primitives = append(doc.Meshes[0].Primitives, lines)
	doc.Meshes[0].Primitives[0].Material = nil

	asset, err := NewLoader().LoadBytes("quad", marshal(t, doc), "")
	require.NoError(t, err)
	assert.Len(t, asset.Description.Meshes[0].Primitives, 1)
}

func TestAssetUpload(t *testing.T) {
	buf := quadBuffer()
	doc := quadDocument(len(buf))
	doc.Buffers[0].URI = dataURI("application/octet-stream", buf)
	doc.Images[0].URI = dataURI("image/png", encodePNG(t))

	asset, err := NewLoader().LoadBytes("quad", marshal(t, doc), "")
	require.NoError(t, err)

	dev := devicetest.New()
	sc, err := asset.Upload(dev)
	require.NoError(t, err)
	require.Len(t, sc.DrawRecords(), 1)
	assert.True(t, sc.DrawRecords()[0].Indexed())

	var srgb int
	for _, tex := range dev.Textures {
		if tex.Desc.Format == wgpu.TextureFormatRGBA8UnormSrgb && tex.Desc.Size.Width == 2 {
			srgb++
		}
	}
	assert.Equal(t, 1, srgb)
}

func TestAssetUpload_PropagatesDeviceErrors(t *testing.T) {
	asset := &Asset{Name: "quad"}
	asset.Description, asset.Buffers = scenetest.QuadDescription()

	dev := devicetest.New()
	dev.Fail["CreateTexture"] = assert.AnError
	_, err := asset.Upload(dev)
	assert.ErrorIs(t, err, assert.AnError)
}
