// Package config reads the voxelview TOML configuration file.
//
// A file only needs the keys it changes; everything else keeps the value from Default:
//
//	[window]
//	title = "Sponza"
//	width = 1920
//	height = 1080
//
//	[scene]
//	path = "assets/sponza/Sponza.gltf"
//
//	[renderer]
//	voxel_resolution = 256
//	static_lighting = false
//
//	[log]
//	level = "debug"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid is returned when a configuration file cannot be decoded or fails validation.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full application configuration.
type Config struct {
	Window   WindowConfig   `toml:"window"`
	Scene    SceneConfig    `toml:"scene"`
	Renderer RendererConfig `toml:"renderer"`
	Log      LogConfig      `toml:"log"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

type SceneConfig struct {
	// Path is the .gltf or .glb file to display.
	Path string `toml:"path"`
}

type RendererConfig struct {
	// VoxelResolution is the edge length of the voxel volume and must be a power of two.
	VoxelResolution uint32 `toml:"voxel_resolution"`
	ShadowMapSize   uint32 `toml:"shadow_map_size"`
	// StaticLighting records the lighting passes once instead of every frame.
	StaticLighting bool       `toml:"static_lighting"`
	ClearColor     [4]float64 `toml:"clear_color"`
}

type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:  "oxy-voxel",
			Width:  1280,
			Height: 720,
		},
		Scene: SceneConfig{
			Path: "assets/sponza/Sponza.gltf",
		},
		Renderer: RendererConfig{
			VoxelResolution: 512,
			ShadowMapSize:   2048,
			StaticLighting:  true,
			ClearColor:      [4]float64{0.25, 0.23, 1, 1},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the TOML file at path over the defaults and validates the result.
//
// Parameters:
//   - path: the configuration file
//
// Returns:
//   - Config: the merged configuration
//   - error: the read error, or an error wrapping ErrInvalid
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML data over the defaults and validates the result. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks sizes, the voxel resolution and the log level.
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Scene.Path == "" {
		errs = append(errs, errors.New("scene path is empty"))
	}
	if r := c.Renderer.VoxelResolution; r == 0 || bits.OnesCount32(r) != 1 {
		errs = append(errs, fmt.Errorf("voxel resolution %d must be a power of two", r))
	}
	if c.Renderer.ShadowMapSize == 0 {
		errs = append(errs, errors.New("shadow map size must be positive"))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// SlogLevel returns the slog level named by the log section. Unknown names fall back to info.
func (c LogConfig) SlogLevel() slog.Level {
	level, err := parseLevel(c.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}
