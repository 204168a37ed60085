package shader

// ShaderBuilderOption configures a shader before its source is processed.
type ShaderBuilderOption func(*shader)

// WithInclude registers an extra //@oxy:include target, or replaces a built-in one.
//
// Parameters:
//   - name: the include name used in the directive
//   - source: the WGSL text injected in place of the directive
//
// Returns:
//   - ShaderBuilderOption: a function that registers the include
func WithInclude(name, source string) ShaderBuilderOption {
	return func(s *shader) {
		s.includes[name] = source
	}
}
