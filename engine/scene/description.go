package scene

import (
	"github.com/Carmen-Shannon/oxy-voxel/common"
)

// ComponentType is the glTF accessor component type code.
type ComponentType uint32

const (
	ComponentByte          ComponentType = 5120
	ComponentUnsignedByte  ComponentType = 5121
	ComponentShort         ComponentType = 5122
	ComponentUnsignedShort ComponentType = 5123
	ComponentUnsignedInt   ComponentType = 5125
	ComponentFloat         ComponentType = 5126
)

// Size returns the byte size of one component, or 0 for an unknown code.
func (c ComponentType) Size() uint64 {
	switch c {
	case ComponentByte, ComponentUnsignedByte:
		return 1
	case ComponentShort, ComponentUnsignedShort:
		return 2
	case ComponentUnsignedInt, ComponentFloat:
		return 4
	}
	return 0
}

// AccessorType is the glTF element shape of an accessor ("SCALAR", "VEC3", ...).
type AccessorType string

const (
	AccessorScalar AccessorType = "SCALAR"
	AccessorVec2   AccessorType = "VEC2"
	AccessorVec3   AccessorType = "VEC3"
	AccessorVec4   AccessorType = "VEC4"
	AccessorMat2   AccessorType = "MAT2"
	AccessorMat3   AccessorType = "MAT3"
	AccessorMat4   AccessorType = "MAT4"
)

// Components returns the number of components per element, or 0 for an unknown type.
func (t AccessorType) Components() uint64 {
	switch t {
	case AccessorScalar:
		return 1
	case AccessorVec2:
		return 2
	case AccessorVec3:
		return 3
	case AccessorVec4, AccessorMat2:
		return 4
	case AccessorMat3:
		return 9
	case AccessorMat4:
		return 16
	}
	return 0
}

// Description is a loaded scene graph. Nodes live in an arena and reference their children by
// index; the builder only reads it.
type Description struct {
	Nodes       []Node
	Roots       []int
	Meshes      []Mesh
	Accessors   []Accessor
	BufferViews []BufferView
	Materials   []Material
	Textures    []Texture
}

// Node is one entry of the node arena.
type Node struct {
	Name string
	// Local is the column-major local transform.
	Local    [16]float32
	Children []int
	Mesh     *int
}

type Mesh struct {
	Name       string
	Primitives []Primitive
}

// Primitive is one drawable part of a mesh. Attributes maps a semantic name such as "POSITION"
// to an accessor index.
type Primitive struct {
	Attributes map[string]int
	Indices    *int
	Material   *int
}

// Accessor describes a typed view into a buffer view.
type Accessor struct {
	BufferView    *int
	ByteOffset    uint64
	ComponentType ComponentType
	Type          AccessorType
	Normalized    bool
	Count         uint32
}

// ElementSize returns the tightly packed byte size of one element.
func (a Accessor) ElementSize() uint64 {
	return a.ComponentType.Size() * a.Type.Components()
}

// BufferView is a byte range of one decoded buffer. ByteStride is 0 when the data is tightly
// packed.
type BufferView struct {
	Buffer     int
	ByteOffset uint64
	ByteLength uint64
	ByteStride uint64
}

// Key returns the view identity used by the resource cache.
func (v BufferView) Key() BufferViewKey {
	return BufferViewKey{
		Buffer:     v.Buffer,
		ByteOffset: v.ByteOffset,
		ByteLength: v.ByteLength,
		ByteStride: v.ByteStride,
	}
}

// Material holds the optional factor and texture references of a glTF material. Nil fields
// resolve to the defaults in MaterialRecord.
type Material struct {
	Name                     string
	BaseColorFactor          *[4]float32
	MetallicFactor           *float32
	RoughnessFactor          *float32
	AlphaCutoff              *float32
	BaseColorTexture         *int
	MetallicRoughnessTexture *int
	NormalTexture            *int
}

// Texture pairs an image index with its sampler settings.
type Texture struct {
	Image   int
	Sampler common.SamplerStagingData
}
