package scene

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// AttributeSlot is the shader location a vertex attribute semantic is bound to.
type AttributeSlot int

const (
	AttributeUnknown AttributeSlot = iota - 1
	SlotPosition
	SlotTexCoord
	SlotNormal
	SlotTangent
	SlotJoints
	SlotWeights
	SlotColor
)

var semanticSlots = map[string]AttributeSlot{
	"POSITION":   SlotPosition,
	"TEXCOORD_0": SlotTexCoord,
	"NORMAL":     SlotNormal,
	"TANGENT":    SlotTangent,
	"JOINTS_0":   SlotJoints,
	"WEIGHTS_0":  SlotWeights,
	"COLOR_0":    SlotColor,
}

// SemanticSlot maps a glTF attribute semantic to its slot. Any name outside the table,
// including secondary texcoord and color sets, is AttributeUnknown.
func SemanticSlot(semantic string) AttributeSlot {
	if slot, ok := semanticSlots[semantic]; ok {
		return slot
	}
	return AttributeUnknown
}

type formatKey struct {
	component  ComponentType
	components uint64
	normalized bool
}

var vertexFormats = map[formatKey]wgpu.VertexFormat{
	{ComponentFloat, 1, false}: wgpu.VertexFormatFloat32,
	{ComponentFloat, 2, false}: wgpu.VertexFormatFloat32x2,
	{ComponentFloat, 3, false}: wgpu.VertexFormatFloat32x3,
	{ComponentFloat, 4, false}: wgpu.VertexFormatFloat32x4,

	{ComponentUnsignedInt, 1, false}: wgpu.VertexFormatUint32,
	{ComponentUnsignedInt, 2, false}: wgpu.VertexFormatUint32x2,
	{ComponentUnsignedInt, 3, false}: wgpu.VertexFormatUint32x3,
	{ComponentUnsignedInt, 4, false}: wgpu.VertexFormatUint32x4,

	{ComponentUnsignedByte, 2, false}: wgpu.VertexFormatUint8x2,
	{ComponentUnsignedByte, 4, false}: wgpu.VertexFormatUint8x4,
	{ComponentUnsignedByte, 2, true}:  wgpu.VertexFormatUnorm8x2,
	{ComponentUnsignedByte, 4, true}:  wgpu.VertexFormatUnorm8x4,

	{ComponentByte, 2, false}: wgpu.VertexFormatSint8x2,
	{ComponentByte, 4, false}: wgpu.VertexFormatSint8x4,
	{ComponentByte, 2, true}:  wgpu.VertexFormatSnorm8x2,
	{ComponentByte, 4, true}:  wgpu.VertexFormatSnorm8x4,

	{ComponentShort, 2, false}: wgpu.VertexFormatSint16x2,
	{ComponentShort, 4, false}: wgpu.VertexFormatSint16x4,
	{ComponentShort, 2, true}:  wgpu.VertexFormatSnorm16x2,
	{ComponentShort, 4, true}:  wgpu.VertexFormatSnorm16x4,

	{ComponentUnsignedShort, 2, false}: wgpu.VertexFormatUint16x2,
	{ComponentUnsignedShort, 4, false}: wgpu.VertexFormatUint16x4,
	{ComponentUnsignedShort, 2, true}:  wgpu.VertexFormatUnorm16x2,
	{ComponentUnsignedShort, 4, true}:  wgpu.VertexFormatUnorm16x4,
}

// VertexFormat returns the WebGPU vertex format for an accessor's component layout.
// Float accessors ignore the normalized flag.
//
// Parameters:
//   - a: the accessor
//
// Returns:
//   - wgpu.VertexFormat: the matching format
//   - bool: false when WebGPU has no format for the layout
func VertexFormat(a Accessor) (wgpu.VertexFormat, bool) {
	key := formatKey{a.ComponentType, a.Type.Components(), a.Normalized}
	if a.ComponentType == ComponentFloat || a.ComponentType == ComponentUnsignedInt {
		key.normalized = false
	}
	f, ok := vertexFormats[key]
	return f, ok
}

// IndexFormat returns the WebGPU index format for an index accessor. Only unsigned 16 and
// 32 bit scalars are valid.
func IndexFormat(a Accessor) (wgpu.IndexFormat, bool) {
	if a.Type != AccessorScalar && a.Type != "" {
		return 0, false
	}
	switch a.ComponentType {
	case ComponentUnsignedShort:
		return wgpu.IndexFormatUint16, true
	case ComponentUnsignedInt:
		return wgpu.IndexFormatUint32, true
	}
	return 0, false
}
