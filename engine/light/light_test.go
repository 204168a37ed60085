package light

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFloat(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}

func TestNewLight_Defaults(t *testing.T) {
	sun := NewLight(LightTypeDirectional)
	assert.Equal(t, [3]float32{0, -1, 0}, sun.Direction())
	assert.Equal(t, float32(0), sun.Falloff())
	assert.True(t, sun.Enabled())

	bulb := NewLight(LightTypePoint)
	assert.Equal(t, float32(2), bulb.Falloff())
	assert.Equal(t, [3]float32{1, 1, 1}, bulb.Radiance())
}

func TestWithDirection_Normalizes(t *testing.T) {
	l := NewLight(LightTypeDirectional, WithDirection(0, 0, -4))
	assert.Equal(t, [3]float32{0, 0, -1}, l.Direction())

	l.SetDirection(3, 0, 4)
	d := l.Direction()
	assert.InDelta(t, 1, math32.Sqrt(d[0]*d[0]+d[1]*d[1]+d[2]*d[2]), 1e-6)
}

func TestDefaultLights(t *testing.T) {
	lights := DefaultLights()
	require.Len(t, lights, 3)

	assert.Equal(t, LightTypeDirectional, lights[0].Type())
	assert.Equal(t, [3]float32{30, 30, 30}, lights[0].Radiance())

	assert.Equal(t, [3]float32{-9.87, 1.3, -0.22}, lights[1].Position())
	assert.Equal(t, [3]float32{0, 0, 20}, lights[1].Radiance())
	assert.Equal(t, float32(2), lights[1].Falloff())

	assert.Equal(t, [3]float32{8.7, 1.6, -0.3}, lights[2].Position())
	assert.Equal(t, [3]float32{10, 10, 10}, lights[2].Radiance())

	assert.Same(t, lights[0], Sun(lights))
}

func TestSun_SkipsDisabledAndPoint(t *testing.T) {
	lights := []Light{
		NewLight(LightTypePoint),
		NewLight(LightTypeDirectional, WithEnabled(false)),
	}
	assert.Nil(t, Sun(lights))

	second := NewLight(LightTypeDirectional)
	lights = append(lights, second)
	assert.Same(t, second, Sun(lights))
}

func TestNewGPULights_PacksDefaultRig(t *testing.T) {
	lights := DefaultLights()
	gpu, dropped := NewGPULights(lights)

	assert.Equal(t, 0, dropped)
	assert.Equal(t, int32(3), gpu.Count)

	dir := lights[0].Direction()
	assert.Equal(t, [4]float32{dir[0], dir[1], dir[2], 0}, gpu.Lights[0].Position)
	assert.Equal(t, [4]float32{-9.87, 1.3, -0.22, 1}, gpu.Lights[1].Position)
	assert.Equal(t, float32(2), gpu.Lights[2].Falloff)
	assert.Equal(t, GPULight{}, gpu.Lights[3])
}

func TestNewGPULights_SkipsDisabledAndTruncates(t *testing.T) {
	var lights []Light
	lights = append(lights, NewLight(LightTypePoint, WithEnabled(false)), nil)
	for i := range MaxGPULights + 2 {
		lights = append(lights, NewLight(LightTypePoint, WithPosition(float32(i), 0, 0)))
	}

	gpu, dropped := NewGPULights(lights)
	assert.Equal(t, int32(MaxGPULights), gpu.Count)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, float32(0), gpu.Lights[0].Position[0])
	assert.Equal(t, float32(MaxGPULights-1), gpu.Lights[MaxGPULights-1].Position[0])
}

func TestGPULights_Marshal(t *testing.T) {
	gpu, _ := NewGPULights(DefaultLights())
	buf := gpu.Marshal()

	require.Len(t, buf, 272)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, buf[:12])
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf[12:]))

	second := 16 + 32
	assert.Equal(t, float32(-9.87), readFloat(buf, second))
	assert.Equal(t, float32(1), readFloat(buf, second+12))
	assert.Equal(t, float32(20), readFloat(buf, second+24))
	assert.Equal(t, float32(2), readFloat(buf, second+28))

	assert.Equal(t, gpu.Lights[1].Marshal(), buf[second:second+32])
}

func TestGPULightsSource_DeclaresStructs(t *testing.T) {
	assert.Contains(t, GPULightsSource, "struct Light {")
	assert.Contains(t, GPULightsSource, "array<Light, 8>")
}

func transform(m [16]float32, p [3]float32) [3]float32 {
	var out [4]float32
	for row := range 4 {
		out[row] = m[row]*p[0] + m[4+row]*p[1] + m[8+row]*p[2] + m[12+row]
	}
	return [3]float32{out[0] / out[3], out[1] / out[3], out[2] / out[3]}
}

func TestShadowViewProjection_CoversVolume(t *testing.T) {
	dir := DefaultDirection
	vp := ShadowViewProjection(dir)

	origin := transform(vp, [3]float32{0, 0, 0})
	assert.InDelta(t, 0, origin[0], 1e-5)
	assert.InDelta(t, 0, origin[1], 1e-5)
	assert.InDelta(t, 0.5, origin[2], 1e-5)

	// Points further along the light direction are deeper.
	d := normalize(dir[0], dir[1], dir[2])
	ahead := transform(vp, [3]float32{d[0] * 10, d[1] * 10, d[2] * 10})
	behind := transform(vp, [3]float32{-d[0] * 10, -d[1] * 10, -d[2] * 10})
	assert.Greater(t, ahead[2], origin[2])
	assert.Less(t, behind[2], origin[2])
	assert.InDelta(t, 0, ahead[0], 1e-5)

	edge := transform(vp, [3]float32{d[0] * 30, d[1] * 30, d[2] * 30})
	assert.InDelta(t, 1, edge[2], 1e-5)
}

func TestShadowUniform(t *testing.T) {
	sun := DefaultLights()[0]
	u := ShadowUniform(sun)
	assert.Equal(t, ShadowViewProjection(sun.Direction()), u.ViewProj)
	assert.Equal(t, [3]float32{}, u.CameraPosition)
}
