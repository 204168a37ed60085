package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/chewxy/math32"
)

type cameraImpl struct {
	mu *sync.Mutex

	position  [3]float32
	direction [3]float32
	up        [3]float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewMatrix           [16]float32
	projectionMatrix     [16]float32
	viewProjectionMatrix [16]float32
}

// Camera is a perspective camera placed at a position and looking along a direction.
// Matrices are recomputed whenever a setter is called; reads are safe from any goroutine.
type Camera interface {
	// Position returns the world-space eye position.
	Position() [3]float32

	// Direction returns the normalized viewing direction.
	Direction() [3]float32

	// Up returns the camera's up vector.
	//
	// Returns:
	//   - x, y, z: up vector components
	Up() (x, y, z float32)

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// ViewMatrix returns the current 4x4 view matrix as 16 floats (column-major).
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the OpenGL-convention projection matrix (column-major).
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns the clip-space transform uploaded to the GPU, with the depth
	// range already remapped to [0, 1].
	//
	// Returns:
	//   - [16]float32: OpenGLToWGPU * projection * view
	ViewProjectionMatrix() [16]float32

	// Uniform returns the GPU representation of the camera.
	Uniform() GPUCameraUniform

	// SetPosition moves the eye and recomputes matrices.
	//
	// Parameters:
	//   - x, y, z: world-space position
	SetPosition(x, y, z float32)

	// SetDirection changes the viewing direction and recomputes matrices. A zero vector is ignored.
	//
	// Parameters:
	//   - x, y, z: direction, need not be normalized
	SetDirection(x, y, z float32)

	// SetFov sets the field of view in radians and recomputes matrices.
	SetFov(fov float32)

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)
}

var _ Camera = &cameraImpl{}

// Defaults place the camera inside the Sponza atrium, looking down the nave along +X.
var (
	DefaultPosition  = [3]float32{-1.8, 3.155, -0.3}
	DefaultDirection = [3]float32{1, 0, 0}
)

const (
	DefaultFovDegrees = 90
	DefaultNear       = 0.01
	DefaultFar        = 1000
)

// NewCamera creates a new Camera with the default placement and perspective settings.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:        &sync.Mutex{},
		position:  DefaultPosition,
		direction: DefaultDirection,
		up:        [3]float32{0, 1, 0},
		fov:       DefaultFovDegrees * (math32.Pi / 180),
		aspect:    16.0 / 9.0,
		near:      DefaultNear,
		far:       DefaultFar,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Direction() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.direction
}

func (c *cameraImpl) Up() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up[0], c.up[1], c.up[2]
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Uniform() GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUCameraUniform{
		ViewProj:       c.viewProjectionMatrix,
		CameraPosition: c.position,
	}
}

func (c *cameraImpl) SetPosition(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = [3]float32{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) SetDirection(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if x == 0 && y == 0 && z == 0 {
		return
	}
	c.direction = [3]float32{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if aspect <= 0 {
		return
	}
	c.aspect = aspect
	c.updateMatrices()
}

// updateMatrices recalculates the view, projection and view-projection matrices.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	dx, dy, dz := common.Normalize3(c.direction[0], c.direction[1], c.direction[2])
	c.direction = [3]float32{dx, dy, dz}

	common.LookTo(c.viewMatrix[:], c.position, c.direction, c.up)
	common.Perspective(c.projectionMatrix[:], c.fov, c.aspect, c.near, c.far)

	c.viewProjectionMatrix = common.MulMatrices(common.OpenGLToWGPU, common.MulMatrices(c.projectionMatrix, c.viewMatrix))
}
