package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var wgslVertexFormats = map[string]wgpu.VertexFormat{
	"f32":       wgpu.VertexFormatFloat32,
	"vec2f":     wgpu.VertexFormatFloat32x2,
	"vec2<f32>": wgpu.VertexFormatFloat32x2,
	"vec3f":     wgpu.VertexFormatFloat32x3,
	"vec3<f32>": wgpu.VertexFormatFloat32x3,
	"vec4f":     wgpu.VertexFormatFloat32x4,
	"vec4<f32>": wgpu.VertexFormatFloat32x4,
	"i32":       wgpu.VertexFormatSint32,
	"vec2<i32>": wgpu.VertexFormatSint32x2,
	"vec3<i32>": wgpu.VertexFormatSint32x3,
	"vec4<i32>": wgpu.VertexFormatSint32x4,
	"u32":       wgpu.VertexFormatUint32,
	"vec2<u32>": wgpu.VertexFormatUint32x2,
	"vec3<u32>": wgpu.VertexFormatUint32x3,
	"vec4<u32>": wgpu.VertexFormatUint32x4,
}

var wgslTextureDimensions = map[string]wgpu.TextureViewDimension{
	"texture_1d":               wgpu.TextureViewDimension1D,
	"texture_2d":               wgpu.TextureViewDimension2D,
	"texture_2d_array":         wgpu.TextureViewDimension2DArray,
	"texture_3d":               wgpu.TextureViewDimension3D,
	"texture_cube":             wgpu.TextureViewDimensionCube,
	"texture_multisampled_2d":  wgpu.TextureViewDimension2D,
	"texture_depth_2d":         wgpu.TextureViewDimension2D,
	"texture_depth_2d_array":   wgpu.TextureViewDimension2DArray,
	"texture_depth_cube":       wgpu.TextureViewDimensionCube,
	"texture_storage_1d":       wgpu.TextureViewDimension1D,
	"texture_storage_2d":       wgpu.TextureViewDimension2D,
	"texture_storage_2d_array": wgpu.TextureViewDimension2DArray,
	"texture_storage_3d":       wgpu.TextureViewDimension3D,
}

var wgslSampleTypes = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

var wgslStorageAccess = map[string]wgpu.StorageTextureAccess{
	"write":      wgpu.StorageTextureAccessWriteOnly,
	"read":       wgpu.StorageTextureAccessReadOnly,
	"read_write": wgpu.StorageTextureAccessReadWrite,
}

var wgslTexelFormats = map[string]wgpu.TextureFormat{
	"rgba8unorm":  wgpu.TextureFormatRGBA8Unorm,
	"rgba8uint":   wgpu.TextureFormatRGBA8Uint,
	"rgba16uint":  wgpu.TextureFormatRGBA16Uint,
	"rgba16float": wgpu.TextureFormatRGBA16Float,
	"r32uint":     wgpu.TextureFormatR32Uint,
	"r32float":    wgpu.TextureFormatR32Float,
	"rgba32float": wgpu.TextureFormatRGBA32Float,
}

var (
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	locationRegex    = regexp.MustCompile(`@location\((\d+)\)`)
	builtinRegex     = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches "name: type" after any attributes. The type capture is greedy so
	// that parameterized types like array<T, N> survive intact.
	fieldRegex = regexp.MustCompile(`(?:@\w+\([^)]*\)\s*)*(\w+)\s*:\s*(.+)`)

	entryRegexes = map[ShaderType]*regexp.Regexp{
		ShaderTypeVertex:   regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`),
		ShaderTypeFragment: regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`),
		ShaderTypeCompute:  regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`),
	}

	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// bindGroupDeclRegex captures group, binding, optional address space, name and type of
	// declarations such as "@group(0) @binding(0) var<uniform> camera: CameraUniform;".
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

type parsedStruct struct {
	name   string
	fields []parsedField
}

// parseBindGroupLayouts turns every @group/@binding declaration into a layout entry. Entries
// are sorted by binding within each group. Buffer entries get a MinBindingSize when the bound
// type's size can be resolved.
//
// Writable storage cannot be visible to the vertex stage, so such entries have the vertex bit
// cleared when another stage remains.
func parseBindGroupLayouts(cleaned string, visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	varNames := make(map[int]map[int]string)
	sizes := computeStructSizes(parseStructBlocks(cleaned))

	for _, m := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		addressSpace := strings.TrimSpace(m[3])
		typeName := strings.TrimSpace(m[5])

		entry, writable := classifyResource(uint32(binding), addressSpace, typeName)
		entry.Visibility = visibility
		if writable && visibility != wgpu.ShaderStageVertex {
			entry.Visibility &^= wgpu.ShaderStageVertex
		}
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if layout, ok := resolveTypeLayout(typeName, sizes); ok {
				entry.Buffer.MinBindingSize = layout.size
			}
		}

		groups[group] = append(groups[group], entry)
		if varNames[group] == nil {
			varNames[group] = make(map[int]string)
		}
		varNames[group][binding] = strings.TrimSpace(m[4])
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		result[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return result, varNames
}

// classifyResource fills the buffer, sampler, texture or storage texture part of a layout entry
// from an address space and type. The boolean reports whether the resource is writable.
func classifyResource(binding uint32, addressSpace, typeName string) (wgpu.BindGroupLayoutEntry, bool) {
	entry := wgpu.BindGroupLayoutEntry{Binding: binding}

	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		return entry, false
	case strings.HasPrefix(addressSpace, "storage"):
		if strings.Contains(addressSpace, "read_write") {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
			return entry, true
		}
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		return entry, false
	}

	base, params := splitTypeParams(typeName)
	switch {
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case typeName == "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case strings.HasPrefix(base, "texture_storage_"):
		entry.StorageTexture.ViewDimension = wgslTextureDimensions[base]
		format, access, _ := strings.Cut(params, ",")
		entry.StorageTexture.Format = wgslTexelFormats[strings.TrimSpace(format)]
		entry.StorageTexture.Access = wgslStorageAccess[strings.TrimSpace(access)]
		return entry, entry.StorageTexture.Access != wgpu.StorageTextureAccessReadOnly
	case strings.HasPrefix(base, "texture_depth_"):
		entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		entry.Texture.ViewDimension = wgslTextureDimensions[base]
		entry.Texture.Multisampled = strings.Contains(base, "multisampled")
	case strings.HasPrefix(base, "texture_"):
		entry.Texture.SampleType = wgslSampleTypes[params]
		entry.Texture.ViewDimension = wgslTextureDimensions[base]
		entry.Texture.Multisampled = strings.Contains(base, "multisampled")
	}
	return entry, false
}

// parseWorkgroupSize reads @workgroup_size; omitted dimensions default to 1.
func parseWorkgroupSize(cleaned string) [3]uint32 {
	result := [3]uint32{1, 1, 1}
	m := workgroupSizeRegex.FindStringSubmatch(cleaned)
	if m == nil {
		return result
	}
	for i := range 3 {
		if v, err := strconv.ParseUint(m[i+1], 10, 32); err == nil {
			result[i] = uint32(v)
		}
	}
	return result
}

func parseEntryPoint(cleaned string, stage ShaderType) string {
	re, ok := entryRegexes[stage]
	if !ok {
		return ""
	}
	if m := re.FindStringSubmatch(cleaned); m != nil {
		return m[1]
	}
	return ""
}

// parseVertexInputs collects the @location inputs of the named vertex function, both those
// declared directly on parameters and those inside struct-typed parameters.
func parseVertexInputs(cleaned, entry string) []VertexInput {
	params, ok := functionParams(cleaned, entry)
	if !ok {
		return nil
	}
	structs := make(map[string]parsedStruct)
	for _, ps := range parseStructBlocks(cleaned) {
		structs[ps.name] = ps
	}

	var inputs []VertexInput
	add := func(f parsedField) {
		if f.isBuiltin || f.location < 0 {
			return
		}
		inputs = append(inputs, VertexInput{
			Location: uint32(f.location),
			Name:     f.name,
			Format:   wgslVertexFormats[f.typeName],
		})
	}
	for _, f := range parseFields(params) {
		if ps, ok := structs[f.typeName]; ok && f.location < 0 && !f.isBuiltin {
			for _, sf := range ps.fields {
				add(sf)
			}
			continue
		}
		add(f)
	}
	sort.Slice(inputs, func(i, j int) bool {
		return inputs[i].Location < inputs[j].Location
	})
	return inputs
}

// functionParams returns the text between the parentheses of fn name(...).
func functionParams(cleaned, name string) (string, bool) {
	re := regexp.MustCompile(`\bfn\s+` + regexp.QuoteMeta(name) + `\s*\(`)
	loc := re.FindStringIndex(cleaned)
	if loc == nil {
		return "", false
	}
	depth := 1
	for i := loc[1]; i < len(cleaned); i++ {
		switch cleaned[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return cleaned[loc[1]:i], true
			}
		}
	}
	return "", false
}

func parseStructBlocks(cleaned string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(cleaned, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, m := range matches {
		structs = append(structs, parsedStruct{name: m[1], fields: parseFields(m[2])})
	}
	return structs
}

// parseFields parses a comma separated list of struct members or function parameters.
func parseFields(body string) []parsedField {
	var fields []parsedField
	for _, part := range splitAtTopLevelCommas(body) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fm := fieldRegex.FindStringSubmatch(part)
		if fm == nil {
			continue
		}
		f := parsedField{
			name:      fm[1],
			typeName:  strings.TrimSpace(fm[2]),
			location:  -1,
			isBuiltin: builtinRegex.MatchString(part),
		}
		if lm := locationRegex.FindStringSubmatch(part); lm != nil {
			f.location, _ = strconv.Atoi(lm[1])
		}
		fields = append(fields, f)
	}
	return fields
}

// splitTypeParams splits "texture_2d<f32>" into ("texture_2d", "f32").
func splitTypeParams(typeName string) (string, string) {
	base, params, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return strings.TrimSpace(base), strings.TrimSpace(strings.TrimSuffix(params, ">"))
}

// splitAtTopLevelCommas splits at commas outside angle brackets and parentheses, so that
// array<T, N> and @location(0) stay whole.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(':
			depth++
		case '>', ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// stripComments removes line comments and nested block comments.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			switch {
			case source[i] == '/' && source[i+1] == '*':
				depth++
				i++
				continue
			case source[i] == '*' && source[i+1] == '/' && depth > 0:
				depth--
				i++
				continue
			case depth == 0 && source[i] == '/' && source[i+1] == '/':
				for i < len(source) && source[i] != '\n' {
					i++
				}
				if i < len(source) {
					sb.WriteByte('\n')
				}
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
