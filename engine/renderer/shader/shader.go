// Package shader parses WGSL sources into the metadata the pipeline registry and the voxel mip
// generator need: entry points, workgroup sizes, vertex inputs and bind group layout
// descriptors derived from @group/@binding declarations.
package shader

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies a shader stage.
type ShaderType int

const (
	// ShaderTypeCompute indicates a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex indicates a @vertex entry point.
	ShaderTypeVertex

	// ShaderTypeFragment indicates a @fragment entry point.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeCompute:
		return "compute"
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	}
	return fmt.Sprintf("ShaderType(%d)", int(t))
}

var errNoEntryPoint = errors.New("shader has no entry point")

// VertexInput is one @location input of the vertex entry point.
type VertexInput struct {
	Location uint32
	Name     string
	Format   wgpu.VertexFormat
}

type shader struct {
	key         string
	source      string
	entryPoints map[ShaderType]string
	workGroup   [3]uint32
	layouts     map[int]wgpu.BindGroupLayoutDescriptor
	varNames    map[int]map[int]string
	inputs      []VertexInput
	includes    map[string]string
}

// Shader is a parsed WGSL module. A render shader has a vertex entry point and optionally a
// fragment entry point; a compute shader has a compute entry point. Shaders are immutable once
// built and safe to share between pipelines.
type Shader interface {
	// Key returns the unique identifier of the shader, used as the module label.
	Key() string

	// Source returns the pre-processed WGSL source.
	Source() string

	// EntryPoint returns the function name for a stage, or "" if the stage is absent.
	//
	// Parameters:
	//   - stage: the shader stage
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint(stage ShaderType) string

	// HasStage reports whether the source declares an entry point for stage.
	HasStage(stage ShaderType) bool

	// IsCompute reports whether this is a compute shader.
	IsCompute() bool

	// WorkgroupSize returns the @workgroup_size of the compute entry point, [1, 1, 1] when
	// unspecified, and [0, 0, 0] for render shaders.
	WorkgroupSize() [3]uint32

	// Groups returns the bind group indices declared by the shader in ascending order.
	Groups() []int

	// BindGroupLayoutDescriptor returns the parsed layout of one bind group.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the layout, entries sorted by binding
	//   - bool: false if the shader declares nothing in that group
	BindGroupLayoutDescriptor(group int) (wgpu.BindGroupLayoutDescriptor, bool)

	// BindGroupVarName returns the variable name declared at group and binding, or "".
	BindGroupVarName(group, binding int) string

	// VertexInputs returns the @location inputs of the vertex entry point sorted by location.
	VertexInputs() []VertexInput
}

var _ Shader = &shader{}

// NewShader pre-processes and parses WGSL source.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - source: WGSL source, optionally containing //@oxy:include directives
//   - options: builder options
//
// Returns:
//   - Shader: the parsed shader
//   - error: if an include is unknown or no entry point is declared
func NewShader(key, source string, options ...ShaderBuilderOption) (Shader, error) {
	s := &shader{
		key:         key,
		entryPoints: make(map[ShaderType]string),
		includes:    defaultIncludes(),
	}
	for _, option := range options {
		option(s)
	}

	processed, err := expandIncludes(source, s.includes)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	s.source = processed

	cleaned := stripComments(s.source)
	for _, stage := range []ShaderType{ShaderTypeVertex, ShaderTypeFragment, ShaderTypeCompute} {
		if name := parseEntryPoint(cleaned, stage); name != "" {
			s.entryPoints[stage] = name
		}
	}
	if len(s.entryPoints) == 0 {
		return nil, fmt.Errorf("shader %s: %w", key, errNoEntryPoint)
	}

	var visibility wgpu.ShaderStage
	switch {
	case s.HasStage(ShaderTypeCompute):
		visibility = wgpu.ShaderStageCompute
		s.workGroup = parseWorkgroupSize(cleaned)
	case s.HasStage(ShaderTypeFragment):
		visibility = wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	default:
		visibility = wgpu.ShaderStageVertex
	}
	if s.HasStage(ShaderTypeVertex) {
		s.inputs = parseVertexInputs(cleaned, s.entryPoints[ShaderTypeVertex])
	}
	s.layouts, s.varNames = parseBindGroupLayouts(cleaned, visibility)
	return s, nil
}

// MustNew is NewShader for sources compiled into the binary. It panics on error.
func MustNew(key, source string, options ...ShaderBuilderOption) Shader {
	s, err := NewShader(key, source, options...)
	if err != nil {
		panic(err)
	}
	return s
}

// Load reads a WGSL file from disk and parses it with NewShader.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - path: the file path to read WGSL source from
//   - options: builder options
//
// Returns:
//   - Shader: the parsed shader
//   - error: if the file cannot be read or parsed
func Load(key, path string, options ...ShaderBuilderOption) (Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	return NewShader(key, string(data), options...)
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint(stage ShaderType) string {
	return s.entryPoints[stage]
}

func (s *shader) HasStage(stage ShaderType) bool {
	_, ok := s.entryPoints[stage]
	return ok
}

func (s *shader) IsCompute() bool {
	return s.HasStage(ShaderTypeCompute)
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroup
}

func (s *shader) Groups() []int {
	groups := make([]int, 0, len(s.layouts))
	for g := range s.layouts {
		groups = append(groups, g)
	}
	sort.Ints(groups)
	return groups
}

func (s *shader) BindGroupLayoutDescriptor(group int) (wgpu.BindGroupLayoutDescriptor, bool) {
	desc, ok := s.layouts[group]
	return desc, ok
}

func (s *shader) BindGroupVarName(group, binding int) string {
	return s.varNames[group][binding]
}

func (s *shader) VertexInputs() []VertexInput {
	return s.inputs
}
