package shader

import (
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-voxel/common"
)

// wgslTypeLayout is the size and alignment of a WGSL type in the uniform/storage address spaces.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslPrimitiveLayouts = map[string]wgslTypeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"bool": {4, 4},

	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec2<i32>": {8, 8},
	"vec2<u32>": {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec3<i32>": {12, 16},
	"vec3<u32>": {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},
	"vec4<i32>": {16, 16},
	"vec4<u32>": {16, 16},

	"mat3x3<f32>": {48, 16},
	"mat4x4<f32>": {64, 16},
	"mat4x4f":     {64, 16},

	"atomic<u32>": {4, 4},
	"atomic<i32>": {4, 4},
}

// resolveTypeLayout resolves primitives, known structs and arrays. A runtime-sized array
// resolves to one element stride, the smallest useful binding.
func resolveTypeLayout(typeName string, known map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	if l, ok := wgslPrimitiveLayouts[typeName]; ok {
		return l, true
	}
	if l, ok := known[typeName]; ok {
		return l, true
	}
	inner, ok := strings.CutPrefix(typeName, "array<")
	if !ok || !strings.HasSuffix(inner, ">") {
		return wgslTypeLayout{}, false
	}
	elem, count, fixed := strings.Cut(strings.TrimSuffix(inner, ">"), ",")
	el, ok := resolveTypeLayout(strings.TrimSpace(elem), known)
	if !ok {
		return wgslTypeLayout{}, false
	}
	stride := common.AlignUp(el.size, el.align)
	if !fixed {
		return wgslTypeLayout{stride, el.align}, true
	}
	n, err := strconv.ParseUint(strings.TrimSpace(count), 10, 64)
	if err != nil {
		return wgslTypeLayout{}, false
	}
	return wgslTypeLayout{n * stride, el.align}, true
}

// computeStructLayout lays fields out at their alignment and rounds the total to the largest
// alignment. A trailing runtime-sized array contributes one element.
func computeStructLayout(ps parsedStruct, known map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	var offset uint64
	maxAlign := uint64(1)
	for _, f := range ps.fields {
		if f.isBuiltin {
			continue
		}
		fl, ok := resolveTypeLayout(f.typeName, known)
		if !ok {
			return wgslTypeLayout{}, false
		}
		offset = common.AlignUp(offset, fl.align) + fl.size
		maxAlign = max(maxAlign, fl.align)
	}
	return wgslTypeLayout{common.AlignUp(offset, maxAlign), maxAlign}, true
}

// computeStructSizes resolves structs in dependency order, repeating until no further struct
// can be resolved.
func computeStructSizes(structs []parsedStruct) map[string]wgslTypeLayout {
	resolved := make(map[string]wgslTypeLayout, len(structs))
	remaining := append([]parsedStruct(nil), structs...)
	for len(remaining) > 0 {
		next := remaining[:0]
		for _, ps := range remaining {
			if l, ok := computeStructLayout(ps, resolved); ok {
				resolved[ps.name] = l
			} else {
				next = append(next, ps)
			}
		}
		if len(next) == len(remaining) {
			break
		}
		remaining = next
	}
	return resolved
}
