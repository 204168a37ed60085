package light

import "github.com/Carmen-Shannon/oxy-voxel/common"

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional represents a light with no position, only direction.
	// Used for the sun. Affects all fragments uniformly with no distance attenuation and is
	// the light the shadow map is rendered from.
	LightTypeDirectional LightType = iota

	// LightTypePoint represents a light that emits in all directions from a position.
	// Attenuates with distance raised to the light's falloff exponent.
	LightTypePoint
)

type lightImpl struct {
	lightType LightType
	position  [3]float32
	direction [3]float32
	color     [3]float32
	intensity float32
	falloff   float32
	enabled   bool
}

// Light defines the interface for a light source in the scene.
//
// Lights are marshaled into the fixed-size lights uniform consumed by the voxelization and
// main passes. Directional lights encode their direction in the position slot with w = 0;
// point lights encode their position with w = 1.
type Light interface {
	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: the light type (directional or point)
	Type() LightType

	// Position returns the world-space position of the light.
	// Meaningless for directional lights.
	//
	// Returns:
	//   - [3]float32: position as (x, y, z)
	Position() [3]float32

	// Direction returns the normalized direction the light travels in.
	// Meaningless for point lights.
	//
	// Returns:
	//   - [3]float32: normalized direction as (x, y, z)
	Direction() [3]float32

	// Color returns the RGB color of the light.
	Color() [3]float32

	// Intensity returns the scalar intensity multiplier for the light.
	Intensity() float32

	// Falloff returns the distance attenuation exponent. Zero disables attenuation.
	Falloff() float32

	// Enabled returns whether this light is active for rendering.
	// Disabled lights are skipped during GPU marshaling.
	//
	// Returns:
	//   - bool: true if the light is enabled
	Enabled() bool

	// Radiance returns color scaled by intensity, the value uploaded to the GPU.
	Radiance() [3]float32

	// SetPosition sets the world-space position of the light.
	//
	// Parameters:
	//   - x, y, z: position components
	SetPosition(x, y, z float32)

	// SetDirection sets the direction of the light and normalizes it.
	//
	// Parameters:
	//   - x, y, z: direction components (will be normalized)
	SetDirection(x, y, z float32)

	// SetColor sets the RGB color of the light.
	//
	// Parameters:
	//   - r, g, b: color components
	SetColor(r, g, b float32)

	// SetIntensity sets the scalar intensity multiplier.
	SetIntensity(intensity float32)

	// SetFalloff sets the distance attenuation exponent.
	SetFalloff(falloff float32)

	// SetEnabled enables or disables the light for rendering.
	SetEnabled(enabled bool)
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the specified type with sensible defaults and
// any provided options applied.
//
// Parameters:
//   - lightType: the kind of light to create (directional or point)
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		lightType: lightType,
		direction: [3]float32{0, -1, 0},
		color:     [3]float32{1, 1, 1},
		intensity: 1.0,
		enabled:   true,
	}
	if lightType == LightTypePoint {
		l.falloff = 2
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultDirection is the sun direction of the default lighting rig.
var DefaultDirection = [3]float32{1, -6, 2}

// DefaultLights returns the lighting rig of the bundled atrium scene: a white sun shining
// along DefaultDirection, a blue point light at the west end of the nave and a white
// point light at the east end.
//
// Returns:
//   - []Light: the three default lights, sun first
func DefaultLights() []Light {
	return []Light{
		NewLight(LightTypeDirectional,
			WithDirection(DefaultDirection[0], DefaultDirection[1], DefaultDirection[2]),
			WithIntensity(30),
		),
		NewLight(LightTypePoint,
			WithPosition(-9.87, 1.3, -0.22),
			WithColor(0, 0, 1),
			WithIntensity(20),
			WithFalloff(2),
		),
		NewLight(LightTypePoint,
			WithPosition(8.7, 1.6, -0.3),
			WithIntensity(10),
			WithFalloff(2),
		),
	}
}

// Sun returns the first enabled directional light, if any.
//
// Parameters:
//   - lights: the lights to search
//
// Returns:
//   - Light: the sun, or nil when there is none
func Sun(lights []Light) Light {
	for _, l := range lights {
		if l != nil && l.Enabled() && l.Type() == LightTypeDirectional {
			return l
		}
	}
	return nil
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() [3]float32 {
	return l.position
}

func (l *lightImpl) Direction() [3]float32 {
	return l.direction
}

func (l *lightImpl) Color() [3]float32 {
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	return l.intensity
}

func (l *lightImpl) Falloff() float32 {
	return l.falloff
}

func (l *lightImpl) Enabled() bool {
	return l.enabled
}

func (l *lightImpl) Radiance() [3]float32 {
	return [3]float32{l.color[0] * l.intensity, l.color[1] * l.intensity, l.color[2] * l.intensity}
}

func (l *lightImpl) SetPosition(x, y, z float32) {
	l.position = [3]float32{x, y, z}
}

func (l *lightImpl) SetDirection(x, y, z float32) {
	l.direction = normalize(x, y, z)
}

func (l *lightImpl) SetColor(r, g, b float32) {
	l.color = [3]float32{r, g, b}
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.intensity = intensity
}

func (l *lightImpl) SetFalloff(falloff float32) {
	l.falloff = falloff
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.enabled = enabled
}

func normalize(x, y, z float32) [3]float32 {
	nx, ny, nz := common.Normalize3(x, y, z)
	return [3]float32{nx, ny, nz}
}
