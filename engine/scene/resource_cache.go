package scene

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

// BufferViewKey is the identity of a source buffer view. Two requests with equal keys share one
// GPU buffer.
type BufferViewKey struct {
	Buffer     int
	ByteOffset uint64
	ByteLength uint64
	ByteStride uint64
}

// BufferID indexes a buffer owned by a ResourceCache.
type BufferID int

// geometryUsage is added to every allocation so a view requested first as vertex data can later
// be bound as index data, and the reverse.
const geometryUsage = wgpu.BufferUsageVertex | wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst

// ResourceCache deduplicates GPU buffers by source view identity. It is mutated only while a
// scene is being built; afterwards Buffer and Len may be called from any goroutine.
type ResourceCache struct {
	mu      *sync.RWMutex
	dev     device.Device
	sources [][]byte
	ids     map[BufferViewKey]BufferID
	buffers []*wgpu.Buffer
	sizes   []uint64
}

// NewResourceCache creates an empty cache over the decoded source buffers.
//
// Parameters:
//   - dev: the device that allocates buffers
//   - sources: one decoded byte slice per scene buffer
//
// Returns:
//   - *ResourceCache: the cache
func NewResourceCache(dev device.Device, sources [][]byte) *ResourceCache {
	return &ResourceCache{
		mu:      &sync.RWMutex{},
		dev:     dev,
		sources: sources,
		ids:     make(map[BufferViewKey]BufferID),
	}
}

// GetOrCreate returns the buffer for a view identity, allocating and filling it on first use.
// The allocation is ByteLength rounded up to 4 bytes; the tail padding is zero.
//
// Parameters:
//   - key: the view identity
//   - usage: the usage the caller needs (vertex or index)
//
// Returns:
//   - BufferID: the id of the shared buffer
//   - error: ErrResource when the key points outside the decoded buffers
func (c *ResourceCache) GetOrCreate(key BufferViewKey, usage wgpu.BufferUsage) (BufferID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.ids[key]; ok {
		return id, nil
	}

	if key.Buffer < 0 || key.Buffer >= len(c.sources) {
		return 0, fmt.Errorf("%w: buffer %d out of range (%d buffers)", ErrResource, key.Buffer, len(c.sources))
	}
	src := c.sources[key.Buffer]
	end := key.ByteOffset + key.ByteLength
	if end < key.ByteOffset || end > uint64(len(src)) {
		return 0, fmt.Errorf("%w: view [%d, %d) exceeds buffer %d of %d bytes",
			ErrResource, key.ByteOffset, end, key.Buffer, len(src))
	}

	size := common.AlignUp(key.ByteLength, 4)
	buf, err := c.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: fmt.Sprintf("Scene Buffer %d@%d+%d", key.Buffer, key.ByteOffset, key.ByteLength),
		Size:  size,
		Usage: usage | geometryUsage,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to allocate buffer for view %+v: %w", key, err)
	}

	if size > 0 {
		data := make([]byte, size)
		copy(data, src[key.ByteOffset:end])
		if err := c.dev.WriteBuffer(buf, 0, data); err != nil {
			return 0, fmt.Errorf("failed to upload buffer for view %+v: %w", key, err)
		}
	}

	id := BufferID(len(c.buffers))
	c.buffers = append(c.buffers, buf)
	c.sizes = append(c.sizes, size)
	c.ids[key] = id
	return id, nil
}

// Buffer returns the GPU buffer for an id, or nil if the id is unknown.
func (c *ResourceCache) Buffer(id BufferID) *wgpu.Buffer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id < 0 || int(id) >= len(c.buffers) {
		return nil
	}
	return c.buffers[id]
}

// Size returns the allocated byte size of a buffer.
func (c *ResourceCache) Size(id BufferID) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id < 0 || int(id) >= len(c.sizes) {
		return 0
	}
	return c.sizes[id]
}

// Len returns the number of distinct buffers allocated.
func (c *ResourceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.buffers)
}
