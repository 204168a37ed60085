package scene

import (
	_ "embed"
	"encoding/binary"
	"math"
)

// GPUTransformSource is the WGSL definition of the Transform struct.
//
//go:embed assets/transform.wgsl
var GPUTransformSource string

// GPUTransform is the per-node uniform at group StartSlot, binding 0. Matches GPUTransformSource.
type GPUTransform struct {
	Model [16]float32
}

// Size returns the byte size of GPUTransform.
func (t GPUTransform) Size() uint64 {
	return 64
}

// Marshal encodes the transform as little-endian floats.
func (t GPUTransform) Marshal() []byte {
	buf := make([]byte, t.Size())
	for i, v := range t.Model {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// GPUMaterialSource is the WGSL definition of the Material struct.
//
//go:embed assets/material.wgsl
var GPUMaterialSource string

// GPUMaterial is the material factor uniform at group StartSlot+1, binding 0. Matches
// GPUMaterialSource (32 bytes with trailing padding).
type GPUMaterial struct {
	BaseColor   [4]float32
	Metallic    float32
	Roughness   float32
	AlphaCutoff float32
}

// Size returns the byte size of GPUMaterial including trailing padding.
func (m GPUMaterial) Size() uint64 {
	return 32
}

// Marshal encodes the material as little-endian floats.
func (m GPUMaterial) Marshal() []byte {
	buf := make([]byte, m.Size())
	for i, v := range m.BaseColor {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[16:], math.Float32bits(m.Metallic))
	binary.LittleEndian.PutUint32(buf[20:], math.Float32bits(m.Roughness))
	binary.LittleEndian.PutUint32(buf[24:], math.Float32bits(m.AlphaCutoff))
	return buf
}
