package loader

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-voxel/engine/scene"
)

// Asset is an imported glTF file held in CPU memory, ready to be uploaded to a device.
type Asset struct {
	// Name is the cache key the asset was loaded under.
	Name string
	// Description is the converted scene graph.
	Description *scene.Description
	// Buffers holds the decoded glTF buffers indexed like the buffer views reference them.
	Buffers [][]byte
	// Images holds one decoded image per glTF image. Images that failed to decode have a zero extent.
	Images []common.TextureStagingData
}

// Upload creates the default textures, uploads the asset textures and builds the scene on dev.
//
// Parameters:
//   - dev: the device to allocate on
//   - options: options forwarded to scene.NewScene
//
// Returns:
//   - scene.Scene: the built scene
//   - error: error if any GPU resource cannot be created or the description is invalid
func (a *Asset) Upload(dev device.Device, options ...scene.SceneBuilderOption) (scene.Scene, error) {
	defaults, err := texture.NewDefaults(dev)
	if err != nil {
		return nil, fmt.Errorf("failed to create default textures: %w", err)
	}
	textures, err := scene.UploadTextures(dev, a.Description, a.Images)
	if err != nil {
		return nil, fmt.Errorf("failed to upload textures for %q: %w", a.Name, err)
	}
	return scene.NewScene(dev, a.Description, a.Buffers, textures, defaults, options...)
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	logger  *slog.Logger
	workers int
	pool    worker.DynamicWorkerPool

	assetCache map[string]*Asset
}

// Loader imports glTF 2.0 files (.gltf and .glb) into scene descriptions and caches the result
// by name. Images are decoded concurrently on a worker pool.
type Loader interface {
	// Load imports a .gltf or .glb file and caches it by path. A cached asset is returned as is.
	//
	// Parameters:
	//   - path: the file path of the model
	//
	// Returns:
	//   - *Asset: the imported asset
	//   - error: an error wrapping scene.ErrLoad if the file cannot be imported
	Load(path string) (*Asset, error)

	// LoadBytes imports an in-memory glTF JSON or GLB document and caches it under name.
	//
	// Parameters:
	//   - name: the cache key
	//   - data: the document bytes
	//   - baseDir: the directory external buffers and images resolve against
	//
	// Returns:
	//   - *Asset: the imported asset
	//   - error: an error wrapping scene.ErrLoad if the document cannot be imported
	LoadBytes(name string, data []byte, baseDir string) (*Asset, error)

	// Get returns a cached asset, or nil.
	Get(name string) *Asset

	// Assets returns a copy of the asset cache.
	Assets() map[string]*Asset
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the given options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: the configured loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		logger:     slog.Default(),
		workers:    runtime.NumCPU(),
		assetCache: make(map[string]*Asset),
	}
	for _, option := range options {
		option(l)
	}

	// Created after options so WithWorkers can override the default.
	l.pool = worker.NewDynamicWorkerPool(l.workers, 64, 1*time.Second)
	return l
}

func (l *loader) Load(path string) (*Asset, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".gltf" && ext != ".glb" {
		return nil, fmt.Errorf("%w: unsupported model format %q", scene.ErrLoad, ext)
	}

	p := newGLTFParser()
	if err := p.Parse(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", scene.ErrLoad, path, err)
	}
	return l.finish(path, p)
}

func (l *loader) LoadBytes(name string, data []byte, baseDir string) (*Asset, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}

	p := newGLTFParser()
	if err := p.ParseBytes(data, baseDir); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", scene.ErrLoad, name, err)
	}
	return l.finish(name, p)
}

// finish converts a parsed document, decodes its images and caches the asset.
func (l *loader) finish(name string, p gltfParser) (*Asset, error) {
	doc := p.Document()
	desc, err := convertDocument(doc, l.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", scene.ErrLoad, name, err)
	}

	start := time.Now()
	images := decodeImages(l.pool, len(doc.Images), p.ImageData, l.logger)

	asset := &Asset{
		Name:        name,
		Description: desc,
		Buffers:     p.Buffers(),
		Images:      images,
	}
	l.logger.Info("loader: imported asset",
		"name", name,
		"nodes", len(desc.Nodes),
		"meshes", len(desc.Meshes),
		"images", len(images),
		"decode", time.Since(start),
	)

	l.mu.Lock()
	l.assetCache[name] = asset
	l.mu.Unlock()
	return asset, nil
}

func (l *loader) Get(name string) *Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.assetCache[name]
}

func (l *loader) Assets() map[string]*Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*Asset, len(l.assetCache))
	for k, v := range l.assetCache {
		result[k] = v
	}
	return result
}
