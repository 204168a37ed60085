// Package engine runs the interactive frame loop: poll window events, render, present.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-voxel/engine/profiler"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer"
	"github.com/Carmen-Shannon/oxy-voxel/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrTooManyFrameErrors is returned by Run when the surface keeps failing to provide frames.
var ErrTooManyFrameErrors = errors.New("too many consecutive frame errors")

// Surface is the presentation side of a device. device.SurfaceDevice implements it.
type Surface interface {
	ConfigureSurface(width, height int) error
	AcquireFrame() (*wgpu.TextureView, error)
	Present()
}

// engine implements the Engine interface.
type engine struct {
	logger   *slog.Logger
	window   window.Window
	surface  Surface
	renderer renderer.Renderer

	profiler         *profiler.Profiler
	profilingEnabled bool

	frameLimit     time.Duration // minimum frame duration; 0 = uncapped
	maxFrameErrors int
	keyHandler     func(window.Event)

	quit     chan struct{}
	quitOnce sync.Once
}

// Engine owns the window, the presentation surface and the renderer, and drives them from a
// single loop on the calling goroutine. Run must be called from the main thread because the
// window pumps platform messages.
type Engine interface {
	// Run prepares the renderer and loops until the window closes, Quit is called or ctx is done.
	// Each iteration handles window events, renders one frame into the acquired surface view
	// and presents it. Resize events reconfigure the surface and the renderer; R re-records
	// the lighting passes; P toggles the profiler.
	//
	// Parameters:
	//   - ctx: cancels the loop
	//
	// Returns:
	//   - error: nil on a normal close, ctx.Err() on cancellation, or the first fatal render error
	Run(ctx context.Context) error

	// Quit stops a running loop after the current frame. Safe to call multiple times.
	Quit()

	// Window returns the underlying window.
	Window() window.Window

	// Renderer returns the frame orchestrator.
	Renderer() renderer.Renderer

	// EnableProfiler enables periodic frame statistics in the log.
	EnableProfiler()

	// DisableProfiler disables periodic frame statistics.
	DisableProfiler()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine around an open window, its surface and a renderer.
//
// Parameters:
//   - win: the window events are read from
//   - surface: the surface frames are acquired from and presented to
//   - r: the renderer drawing each frame
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(win window.Window, surface Surface, r renderer.Renderer, options ...EngineBuilderOption) Engine {
	e := &engine{
		logger:         slog.Default(),
		window:         win,
		surface:        surface,
		renderer:       r,
		maxFrameErrors: 60,
		quit:           make(chan struct{}),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quit)
	})
}

func (e *engine) Run(ctx context.Context) error {
	if err := e.renderer.Prepare(); err != nil {
		return fmt.Errorf("failed to prepare lighting: %w", err)
	}

	frameErrors := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.quit:
			return nil
		default:
		}
		if !e.window.IsRunning() {
			return nil
		}

		start := time.Now()
		closed, err := e.handleEvents(e.window.PollEvents())
		if err != nil {
			return err
		}
		if closed {
			return nil
		}

		presented, err := e.frame()
		if err != nil {
			return err
		}
		if !presented {
			frameErrors++
			if frameErrors >= e.maxFrameErrors {
				return fmt.Errorf("%w: %d", ErrTooManyFrameErrors, frameErrors)
			}
			continue
		}
		frameErrors = 0

		if e.profilingEnabled {
			e.profiler.Tick()
		}
		if e.frameLimit > 0 {
			if remaining := e.frameLimit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// handleEvents applies window events in order and reports whether the window asked to close.
func (e *engine) handleEvents(events []window.Event) (bool, error) {
	for _, ev := range events {
		switch ev.Type {
		case window.EventClose:
			return true, nil
		case window.EventResize:
			if err := e.surface.ConfigureSurface(ev.Width, ev.Height); err != nil {
				return false, fmt.Errorf("failed to configure surface: %w", err)
			}
			if err := e.renderer.Resize(uint32(ev.Width), uint32(ev.Height)); err != nil {
				return false, fmt.Errorf("failed to resize renderer: %w", err)
			}
			e.logger.Debug("engine: resized", "width", ev.Width, "height", ev.Height)
		case window.EventKey:
			if ev.Pressed {
				switch ev.Key {
				case window.KeyR:
					e.renderer.Invalidate()
					e.logger.Info("engine: lighting invalidated")
				case window.KeyP:
					e.profilingEnabled = !e.profilingEnabled
				}
			}
			if e.keyHandler != nil {
				e.keyHandler(ev)
			}
		}
	}
	return false, nil
}

// frame renders and presents one frame. A surface that cannot provide a frame is not fatal; it
// happens while a window is minimized or being resized.
func (e *engine) frame() (bool, error) {
	view, err := e.surface.AcquireFrame()
	if err != nil {
		e.logger.Warn("engine: frame skipped", "error", err)
		return false, nil
	}
	err = e.renderer.RenderFrame(view)
	e.surface.Present()
	if err != nil {
		return false, fmt.Errorf("failed to render frame: %w", err)
	}
	return true, nil
}
