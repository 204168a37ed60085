package light

import (
	_ "embed"
	"encoding/binary"
	"math"
)

// MaxGPULights is the capacity of the lights uniform. Enabled lights past this count are
// not uploaded.
const MaxGPULights = 8

// GPULightsSource is the canonical WGSL definition of the Light and Lights structs.
// Matches GPULights layout exactly (272 bytes).
//
//go:embed assets/lights.wgsl
var GPULightsSource string

// GPULight is the GPU-aligned representation of a single light source.
// Size: 32 bytes.
type GPULight struct {
	Position  [4]float32 // offset  0: xyz position with w = 1, or xyz direction with w = 0
	Intensity [3]float32 // offset 16: color * intensity
	Falloff   float32    // offset 28: distance attenuation exponent
}

// Marshal serializes the GPULight into a 32-byte buffer.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (g GPULight) Marshal() []byte {
	buf := make([]byte, 32)
	g.marshalInto(buf)
	return buf
}

func (g GPULight) marshalInto(buf []byte) {
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Position[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(g.Intensity[i]))
	}
	binary.LittleEndian.PutUint32(buf[28:], math.Float32bits(g.Falloff))
}

// GPULights is the lights uniform: a 16-byte header whose last word holds the light count,
// followed by MaxGPULights fixed slots.
type GPULights struct {
	Count  int32
	Lights [MaxGPULights]GPULight
}

// NewGPULights packs the enabled lights into the uniform layout, in order, up to
// MaxGPULights.
//
// Parameters:
//   - lights: the scene lights
//
// Returns:
//   - GPULights: the packed uniform
//   - int: how many enabled lights did not fit
func NewGPULights(lights []Light) (GPULights, int) {
	var out GPULights
	dropped := 0
	for _, l := range lights {
		if l == nil || !l.Enabled() {
			continue
		}
		if out.Count == MaxGPULights {
			dropped++
			continue
		}
		out.Lights[out.Count] = toGPU(l)
		out.Count++
	}
	return out, dropped
}

func toGPU(l Light) GPULight {
	g := GPULight{Intensity: l.Radiance(), Falloff: l.Falloff()}
	if l.Type() == LightTypeDirectional {
		d := l.Direction()
		g.Position = [4]float32{d[0], d[1], d[2], 0}
		return g
	}
	p := l.Position()
	g.Position = [4]float32{p[0], p[1], p[2], 1}
	return g
}

// Size returns the size of the GPULights struct in bytes.
//
// Returns:
//   - uint64: 16-byte header plus MaxGPULights * 32
func (g GPULights) Size() uint64 {
	return 16 + MaxGPULights*32
}

// Marshal serializes the lights uniform. The first three header words are zero.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g GPULights) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[12:], uint32(g.Count))
	for i := range g.Lights {
		g.Lights[i].marshalInto(buf[16+i*32:])
	}
	return buf
}
