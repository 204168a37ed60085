// Command voxelview opens a window and renders a glTF scene with voxel cone traced lighting.
//
// Usage:
//
//	voxelview [-config voxelview.toml] [scene.gltf]
//
// Keys: R re-records the lighting passes, P toggles frame statistics, Esc quits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/Carmen-Shannon/oxy-voxel/engine"
	"github.com/Carmen-Shannon/oxy-voxel/engine/config"
	"github.com/Carmen-Shannon/oxy-voxel/engine/loader"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-voxel/engine/scene"
	"github.com/Carmen-Shannon/oxy-voxel/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML configuration file")
	flag.Parse()

	if err := run(*configPath, flag.Arg(0)); err != nil {
		slog.Error("voxelview failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, scenePath string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if scenePath != "" {
		cfg.Scene.Path = scenePath
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	// Import before opening the window so a bad path fails fast.
	asset, err := loader.NewLoader(loader.WithLogger(logger)).Load(cfg.Scene.Path)
	if err != nil {
		return err
	}

	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)
	if err != nil {
		return err
	}
	defer win.Close()

	dev, err := device.NewDevice(
		device.WithSurfaceDescriptor(win.SurfaceDescriptor()),
		device.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer dev.Release()

	width, height := win.Size()
	if err := dev.ConfigureSurface(width, height); err != nil {
		return err
	}

	sc, err := asset.Upload(dev, scene.WithLabel(asset.Name), scene.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to build scene: %w", err)
	}

	c := cfg.Renderer.ClearColor
	r, err := renderer.NewRenderer(dev, sc,
		renderer.WithTargetFormat(dev.SurfaceFormat()),
		renderer.WithSize(uint32(width), uint32(height)),
		renderer.WithVoxelResolution(cfg.Renderer.VoxelResolution),
		renderer.WithShadowMapSize(cfg.Renderer.ShadowMapSize),
		renderer.WithStaticLighting(cfg.Renderer.StaticLighting),
		renderer.WithClearColor(wgpu.Color{R: c[0], G: c[1], B: c[2], A: c[3]}),
		renderer.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = engine.NewEngine(win, dev, r, engine.WithLogger(logger)).Run(ctx)
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
