// Package scenetest builds small scenes on a recording device for renderer tests.
package scenetest

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/device/devicetest"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-voxel/engine/scene"
)

// Accessor indices of the quad description.
const (
	AccPosition = iota
	AccNormal
	AccTexCoord
	AccIndices
)

func ref(i int) *int { return &i }

// QuadDescription returns a unit quad in the XZ plane as one node with two primitives: the
// first indexed (6 u16 indices), the second a non-indexed 4 vertex draw. Both read position,
// normal and texcoord from one shared buffer.
func QuadDescription() (*scene.Description, [][]byte) {
	positions := []float32{0, 0, 0, 1, 0, 0, 1, 0, 1, 0, 0, 1}
	normals := []float32{0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1, 0}
	uvs := []float32{0, 0, 1, 0, 1, 1, 0, 1}
	indices := []uint16{0, 1, 2, 0, 2, 3}

	buf := make([]byte, 0, 140)
	for _, f := range append(append(positions, normals...), uvs...) {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	for _, i := range indices {
		buf = binary.LittleEndian.AppendUint16(buf, i)
	}

	all := map[string]int{
		"POSITION":   AccPosition,
		"NORMAL":     AccNormal,
		"TEXCOORD_0": AccTexCoord,
	}
	desc := &scene.Description{
		BufferViews: []scene.BufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 48},
			{Buffer: 0, ByteOffset: 48, ByteLength: 48},
			{Buffer: 0, ByteOffset: 96, ByteLength: 32},
			{Buffer: 0, ByteOffset: 128, ByteLength: 12},
		},
		Accessors: []scene.Accessor{
			{BufferView: ref(0), ComponentType: scene.ComponentFloat, Type: scene.AccessorVec3, Count: 4},
			{BufferView: ref(1), ComponentType: scene.ComponentFloat, Type: scene.AccessorVec3, Count: 4},
			{BufferView: ref(2), ComponentType: scene.ComponentFloat, Type: scene.AccessorVec2, Count: 4},
			{BufferView: ref(3), ComponentType: scene.ComponentUnsignedShort, Type: scene.AccessorScalar, Count: 6},
		},
		Meshes: []scene.Mesh{{
			Name: "quad",
			Primitives: []scene.Primitive{
				{Attributes: all, Indices: ref(AccIndices)},
				{Attributes: all},
			},
		}},
		Nodes: []scene.Node{{Name: "quad", Local: common.IdentityMatrix(), Mesh: ref(0)}},
		Roots: []int{0},
	}
	return desc, [][]byte{buf}
}

// Build builds desc on a fresh recording device with default textures.
func Build(desc *scene.Description, buffers [][]byte) (scene.Scene, *devicetest.Device, error) {
	dev := devicetest.New()
	defaults, err := texture.NewDefaults(dev)
	if err != nil {
		return nil, nil, err
	}
	s, err := scene.NewScene(dev, desc, buffers, nil, defaults)
	return s, dev, err
}

// Quad builds QuadDescription. It panics on error since the description is fixed.
func Quad() (scene.Scene, *devicetest.Device) {
	desc, buffers := QuadDescription()
	s, dev, err := Build(desc, buffers)
	if err != nil {
		panic(err)
	}
	return s, dev
}
