// Package scene flattens a loaded node graph into GPU-ready draw records. Vertex and index data
// are deduplicated through a ResourceCache; every node gets a transform bind group and every
// primitive a material bind group, both stored in one table addressed by integer id.
package scene

import (
	"errors"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrLoad reports a malformed or unsupported scene description.
	ErrLoad = errors.New("scene load error")
	// ErrResource reports a buffer reference outside the decoded buffers.
	ErrResource = errors.New("scene resource error")
)

// VertexStream binds one attribute buffer to a vertex buffer slot.
type VertexStream struct {
	Slot   uint32
	Buffer BufferID
	Offset uint64
}

// IndexRef is the index stream of an indexed draw.
type IndexRef struct {
	Buffer BufferID
	Format wgpu.IndexFormat
	Offset uint64
}

// DrawRecord describes one renderable primitive. VertexLayouts and Streams have equal length and
// the same order; layout i describes the buffer bound at Streams[i].Slot.
type DrawRecord struct {
	Node             int
	VertexLayouts    []wgpu.VertexBufferLayout
	Streams          []VertexStream
	Index            *IndexRef
	DrawCount        uint32
	TransformBinding int
	MaterialBinding  int
}

// Indexed reports whether the record issues an indexed draw.
func (r DrawRecord) Indexed() bool {
	return r.Index != nil
}

// Scene is an immutable built scene. All methods are safe for concurrent use.
type Scene interface {
	// DrawRecords returns the draw records in build order. The slice must not be modified.
	DrawRecords() []DrawRecord

	// BindGroup returns the bind group with the given table id, or nil.
	BindGroup(id int) *wgpu.BindGroup

	// BindGroupCount returns the size of the bind group table.
	BindGroupCount() int

	// Buffer returns the cached GPU buffer with the given id, or nil.
	Buffer(id BufferID) *wgpu.Buffer

	// Cache returns the resource cache the scene was built with.
	Cache() *ResourceCache

	// TransformLayout returns the layout shared by every transform bind group.
	TransformLayout() *wgpu.BindGroupLayout

	// MaterialLayout returns the layout shared by every material bind group.
	MaterialLayout() *wgpu.BindGroupLayout

	// WorldTransform returns the accumulated transform of a node.
	//
	// Parameters:
	//   - node: index into the description's node arena
	//
	// Returns:
	//   - [16]float32: the column-major world transform
	//   - bool: false if the node was not reachable from a root
	WorldTransform(node int) ([16]float32, bool)

	// Material returns the resolved material behind a material binding id.
	Material(bindingID int) (MaterialRecord, bool)
}

// scene is the implementation of Scene.
type scene struct {
	mu *sync.RWMutex

	label           string
	records         []DrawRecord
	bindGroups      []*wgpu.BindGroup
	cache           *ResourceCache
	transformLayout *wgpu.BindGroupLayout
	materialLayout  *wgpu.BindGroupLayout
	world           map[int][16]float32
	materials       map[int]MaterialRecord
}

var _ Scene = &scene{}

func (s *scene) DrawRecords() []DrawRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records
}

func (s *scene) BindGroup(id int) *wgpu.BindGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 0 || id >= len(s.bindGroups) {
		return nil
	}
	return s.bindGroups[id]
}

func (s *scene) BindGroupCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bindGroups)
}

func (s *scene) Buffer(id BufferID) *wgpu.Buffer {
	return s.cache.Buffer(id)
}

func (s *scene) Cache() *ResourceCache {
	return s.cache
}

func (s *scene) TransformLayout() *wgpu.BindGroupLayout {
	return s.transformLayout
}

func (s *scene) MaterialLayout() *wgpu.BindGroupLayout {
	return s.materialLayout
}

func (s *scene) WorldTransform(node int) ([16]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.world[node]
	return m, ok
}

func (s *scene) Material(bindingID int) (MaterialRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.materials[bindingID]
	return m, ok
}
