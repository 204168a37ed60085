package engine

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-voxel/engine/profiler"
	"github.com/Carmen-Shannon/oxy-voxel/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler replaces the default once-per-second profiler.
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithFrameLimit caps the loop at fps frames per second. Values <= 0 uncap it.
//
// Parameters:
//   - fps: maximum frames per second
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.frameLimit = 0
			return
		}
		e.frameLimit = time.Duration(float64(time.Second) / fps)
	}
}

// WithMaxFrameErrors sets how many consecutive frames may fail to acquire before Run gives up.
func WithMaxFrameErrors(n int) EngineBuilderOption {
	return func(e *engine) {
		if n > 0 {
			e.maxFrameErrors = n
		}
	}
}

// WithKeyHandler registers a callback for key events, called after the built-in bindings.
//
// Parameters:
//   - handler: receives every EventKey event
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithKeyHandler(handler func(window.Event)) EngineBuilderOption {
	return func(e *engine) {
		e.keyHandler = handler
	}
}

// WithLogger sets the logger used by the engine and its default profiler.
func WithLogger(logger *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}
