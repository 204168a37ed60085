package loader

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-voxel/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeLocalMatrix(t *testing.T) {
	assert.Equal(t, common.IdentityMatrix(), nodeLocalMatrix(gltfNode{}))

	m := [16]float32{2, 0, 0, 0, 0, 2, 0, 0, 0, 0, 2, 0, 5, 6, 7, 1}
	n := gltfNode{Matrix: &m, Translation: &[3]float32{9, 9, 9}}
	assert.Equal(t, m, nodeLocalMatrix(n))

	scaled := nodeLocalMatrix(gltfNode{Scale: &[3]float32{3, 4, 5}})
	assert.Equal(t, float32(3), scaled[0])
	assert.Equal(t, float32(4), scaled[5])
	assert.Equal(t, float32(5), scaled[10])
	assert.Equal(t, float32(1), scaled[15])
}

func TestSceneRoots(t *testing.T) {
	nodes := []gltfNode{{Children: []int{1}}, {}, {Children: []int{3}}, {}}

	tests := []struct {
		name string
		doc  gltfDocument
		want []int
	}{
		{"default scene", gltfDocument{Scene: intPtr(1), Scenes: []gltfScene{{Nodes: []int{0}}, {Nodes: []int{2}}}, Nodes: nodes}, []int{2}},
		{"first scene", gltfDocument{Scenes: []gltfScene{{Nodes: []int{0, 2}}}, Nodes: nodes}, []int{0, 2}},
		{"out of range default", gltfDocument{Scene: intPtr(7), Scenes: []gltfScene{{Nodes: []int{3}}}, Nodes: nodes}, []int{3}},
		{"parentless nodes", gltfDocument{Nodes: nodes}, []int{0, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sceneRoots(&tt.doc))
		})
	}
}

func TestDecodeDataURI(t *testing.T) {
	data, mime, err := decodeDataURI("data:image/png;base64,AQID")
	assert.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
	assert.Equal(t, "image/png", mime)

	_, _, err = decodeDataURI("data:;base64")
	assert.ErrorIs(t, err, errInvalidDataURI)

	_, _, err = decodeDataURI("data:;base64,***")
	assert.ErrorIs(t, err, errInvalidDataURI)
}

func TestDecodeImage_Unsupported(t *testing.T) {
	_, err := DecodeImage([]byte{0, 1, 2, 3})
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestGLTFSamplerDefaults(t *testing.T) {
	assert.Equal(t, common.DefaultSamplerStagingData(), gltfSamplerToStagingData(gltfSampler{}))
}

func TestConvertMaterialAlphaCutoff(t *testing.T) {
	assert.Nil(t, convertMaterial(gltfMaterial{AlphaMode: "MASK"}).AlphaCutoff)

	blend := convertMaterial(gltfMaterial{AlphaMode: "BLEND", AlphaCutoff: float32Ptr(0.3)})
	require.NotNil(t, blend.AlphaCutoff)
	assert.Equal(t, float32(0.3), *blend.AlphaCutoff)

	opaque := convertMaterial(gltfMaterial{AlphaCutoff: float32Ptr(0.7)})
	require.NotNil(t, opaque.AlphaCutoff)
	assert.Equal(t, float32(0.7), *opaque.AlphaCutoff)

	mask := convertMaterial(gltfMaterial{AlphaMode: "MASK"})
	rec, err := scene.ResolveMaterial(&mask, nil, &texture.Defaults{})
	require.NoError(t, err)
	assert.Zero(t, rec.AlphaCutoff)
}
