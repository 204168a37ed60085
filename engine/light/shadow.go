package light

import (
	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/Carmen-Shannon/oxy-voxel/engine/camera"
)

// ShadowMapResolution is the default width and height in texels of the shadow
// depth texture.
const ShadowMapResolution = 2048

// DefaultShadowHalfExtent is the orthographic half-extent (in world units) of the
// directional light's shadow volume on every axis, centered on the origin.
const DefaultShadowHalfExtent float32 = 30.0

// ShadowViewProjection returns the light-space clip transform of a directional light:
// an orthographic box of half-extent DefaultShadowHalfExtent centered on the world origin,
// looking along dir, with depth remapped to [0, 1].
//
// Parameters:
//   - dir: the light's travel direction (need not be normalized)
//
// Returns:
//   - [16]float32: OpenGLToWGPU * ortho * view
func ShadowViewProjection(dir [3]float32) [16]float32 {
	return ShadowViewProjectionExtent(dir, DefaultShadowHalfExtent)
}

// ShadowViewProjectionExtent is ShadowViewProjection with a custom half-extent.
func ShadowViewProjectionExtent(dir [3]float32, halfExtent float32) [16]float32 {
	var view, proj [16]float32
	d := normalize(dir[0], dir[1], dir[2])
	common.LookTo(view[:], [3]float32{}, d, [3]float32{0, 1, 0})
	common.Ortho(proj[:], -halfExtent, halfExtent, -halfExtent, halfExtent, -halfExtent, halfExtent)
	return common.MulMatrices(common.OpenGLToWGPU, common.MulMatrices(proj, view))
}

// ShadowUniform returns the camera uniform uploaded for the shadow pass. The shadow
// shader shares the CameraUniform struct with the main pass.
//
// Parameters:
//   - sun: the directional light casting the shadow
//
// Returns:
//   - camera.GPUCameraUniform: the light-space view-projection with a zero position
func ShadowUniform(sun Light) camera.GPUCameraUniform {
	return camera.GPUCameraUniform{ViewProj: ShadowViewProjection(sun.Direction())}
}
