package scene

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestSemanticSlot(t *testing.T) {
	assert.Equal(t, SlotPosition, SemanticSlot("POSITION"))
	assert.Equal(t, SlotTexCoord, SemanticSlot("TEXCOORD_0"))
	assert.Equal(t, SlotNormal, SemanticSlot("NORMAL"))
	assert.Equal(t, SlotTangent, SemanticSlot("TANGENT"))
	assert.Equal(t, SlotJoints, SemanticSlot("JOINTS_0"))
	assert.Equal(t, SlotWeights, SemanticSlot("WEIGHTS_0"))
	assert.Equal(t, SlotColor, SemanticSlot("COLOR_0"))

	for _, name := range []string{"TEXCOORD_1", "COLOR_1", "_CUSTOM", "position", ""} {
		assert.Equal(t, AttributeUnknown, SemanticSlot(name), name)
	}
}

func TestVertexFormat(t *testing.T) {
	tests := []struct {
		acc  Accessor
		want wgpu.VertexFormat
		ok   bool
	}{
		{Accessor{ComponentType: ComponentFloat, Type: AccessorVec3}, wgpu.VertexFormatFloat32x3, true},
		{Accessor{ComponentType: ComponentFloat, Type: AccessorVec4, Normalized: true}, wgpu.VertexFormatFloat32x4, true},
		{Accessor{ComponentType: ComponentUnsignedByte, Type: AccessorVec4, Normalized: true}, wgpu.VertexFormatUnorm8x4, true},
		{Accessor{ComponentType: ComponentUnsignedByte, Type: AccessorVec4}, wgpu.VertexFormatUint8x4, true},
		{Accessor{ComponentType: ComponentUnsignedShort, Type: AccessorVec2, Normalized: true}, wgpu.VertexFormatUnorm16x2, true},
		{Accessor{ComponentType: ComponentUnsignedShort, Type: AccessorVec4}, wgpu.VertexFormatUint16x4, true},
		{Accessor{ComponentType: ComponentUnsignedInt, Type: AccessorScalar}, wgpu.VertexFormatUint32, true},
		{Accessor{ComponentType: ComponentUnsignedByte, Type: AccessorVec3}, 0, false},
		{Accessor{ComponentType: ComponentByte, Type: AccessorVec2}, wgpu.VertexFormatSint8x2, true},
		{Accessor{ComponentType: ComponentByte, Type: AccessorVec4, Normalized: true}, wgpu.VertexFormatSnorm8x4, true},
		{Accessor{ComponentType: ComponentShort, Type: AccessorVec2}, wgpu.VertexFormatSint16x2, true},
		{Accessor{ComponentType: ComponentShort, Type: AccessorVec4, Normalized: true}, wgpu.VertexFormatSnorm16x4, true},
		{Accessor{ComponentType: ComponentShort, Type: AccessorVec3, Normalized: true}, 0, false},
		{Accessor{ComponentType: ComponentByte, Type: AccessorScalar}, 0, false},
		{Accessor{ComponentType: ComponentFloat, Type: AccessorMat4}, 0, false},
	}
	for _, tt := range tests {
		got, ok := VertexFormat(tt.acc)
		assert.Equal(t, tt.ok, ok, "%+v", tt.acc)
		if tt.ok {
			assert.Equal(t, tt.want, got, "%+v", tt.acc)
		}
	}
}

func TestIndexFormat(t *testing.T) {
	f, ok := IndexFormat(Accessor{ComponentType: ComponentUnsignedShort, Type: AccessorScalar})
	assert.True(t, ok)
	assert.Equal(t, wgpu.IndexFormatUint16, f)

	f, ok = IndexFormat(Accessor{ComponentType: ComponentUnsignedInt, Type: AccessorScalar})
	assert.True(t, ok)
	assert.Equal(t, wgpu.IndexFormatUint32, f)

	_, ok = IndexFormat(Accessor{ComponentType: ComponentUnsignedByte, Type: AccessorScalar})
	assert.False(t, ok)
	_, ok = IndexFormat(Accessor{ComponentType: ComponentUnsignedShort, Type: AccessorVec2})
	assert.False(t, ok)
}

func TestAccessorElementSize(t *testing.T) {
	assert.Equal(t, uint64(12), Accessor{ComponentType: ComponentFloat, Type: AccessorVec3}.ElementSize())
	assert.Equal(t, uint64(4), Accessor{ComponentType: ComponentUnsignedByte, Type: AccessorVec4}.ElementSize())
	assert.Equal(t, uint64(64), Accessor{ComponentType: ComponentFloat, Type: AccessorMat4}.ElementSize())
	assert.Zero(t, Accessor{ComponentType: 1234, Type: AccessorVec2}.ElementSize())
}
