// pre_processor.go expands //@oxy:include directives. Each directive sits alone on a line and
// names a struct definition owned by the package that marshals the matching Go type, so the
// WGSL and Go layouts have a single source.
package shader

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Carmen-Shannon/oxy-voxel/engine/camera"
	"github.com/Carmen-Shannon/oxy-voxel/engine/light"
	"github.com/Carmen-Shannon/oxy-voxel/engine/scene"
)

// Built-in include names.
const (
	IncludeCamera    = "camera"
	IncludeLights    = "lights"
	IncludeTransform = "transform"
	IncludeMaterial  = "material"
)

var includeRegex = regexp.MustCompile(`^\s*//\s*@oxy:include\s+(\S+)\s*$`)

func defaultIncludes() map[string]string {
	return map[string]string{
		IncludeCamera:    camera.GPUCameraUniformSource,
		IncludeLights:    light.GPULightsSource,
		IncludeTransform: scene.GPUTransformSource,
		IncludeMaterial:  scene.GPUMaterialSource,
	}
}

// expandIncludes replaces every include directive with the registered source. Each name is
// injected at most once; repeated directives for the same name expand to nothing.
func expandIncludes(source string, includes map[string]string) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	seen := make(map[string]bool)

	for i, line := range lines {
		m := includeRegex.FindStringSubmatch(line)
		if m == nil {
			out = append(out, line)
			continue
		}
		name := m[1]
		src, ok := includes[name]
		if !ok {
			return "", fmt.Errorf("line %d: unknown @oxy:include %q", i+1, name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, strings.TrimRight(src, "\n"))
	}
	return strings.Join(out, "\n"), nil
}
