package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/device/devicetest"
	"github.com/Carmen-Shannon/oxy-voxel/engine/scene/scenetest"
	"github.com/Carmen-Shannon/oxy-voxel/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedWindow returns one scripted batch of events per poll and stops running when the
// script is exhausted.
type scriptedWindow struct {
	script [][]window.Event
	polls  int
}

func (w *scriptedWindow) PollEvents() []window.Event {
	batch := w.script[w.polls]
	w.polls++
	return batch
}

func (w *scriptedWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (w *scriptedWindow) IsRunning() bool                            { return w.polls < len(w.script) }
func (w *scriptedWindow) Size() (int, int)                           { return 64, 32 }
func (w *scriptedWindow) Close() error                               { return nil }

type fakeSurface struct {
	acquireErr error
	acquired   int
	presented  int
	configured [][2]int
}

func (s *fakeSurface) ConfigureSurface(width, height int) error {
	s.configured = append(s.configured, [2]int{width, height})
	return nil
}

func (s *fakeSurface) AcquireFrame() (*wgpu.TextureView, error) {
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	s.acquired++
	return new(wgpu.TextureView), nil
}

func (s *fakeSurface) Present() { s.presented++ }

func newTestRenderer(t *testing.T) (renderer.Renderer, *devicetest.Device) {
	t.Helper()
	sc, dev := scenetest.Quad()
	r, err := renderer.NewRenderer(dev, sc,
		renderer.WithVoxelResolution(8),
		renderer.WithShadowMapSize(16),
		renderer.WithSize(64, 32),
	)
	require.NoError(t, err)
	return r, dev
}

func labels(s *devicetest.Submission) []string {
	out := make([]string, len(s.Passes))
	for i, p := range s.Passes {
		out[i] = p.Label
	}
	return out
}

func TestRun_RendersUntilWindowStops(t *testing.T) {
	r, dev := newTestRenderer(t)
	win := &scriptedWindow{script: make([][]window.Event, 3)}
	surface := &fakeSurface{}

	require.NoError(t, NewEngine(win, surface, r).Run(context.Background()))

	assert.Equal(t, 3, surface.acquired)
	assert.Equal(t, 3, surface.presented)
	// Prepare records lighting once, then one main pass per frame.
	require.Len(t, dev.Submissions, 4)
	assert.Equal(t, []string{"Shadow Pass", "Voxelization Pass", "Voxel Mip Pass"}, labels(dev.Submissions[0]))
	for _, s := range dev.Submissions[1:] {
		assert.Equal(t, []string{"Main Pass"}, labels(s))
	}
}

func TestRun_CloseEventStops(t *testing.T) {
	r, _ := newTestRenderer(t)
	win := &scriptedWindow{script: [][]window.Event{
		nil,
		{{Type: window.EventClose}},
		nil,
	}}
	surface := &fakeSurface{}

	require.NoError(t, NewEngine(win, surface, r).Run(context.Background()))
	assert.Equal(t, 2, win.polls)
	assert.Equal(t, 1, surface.presented)
}

func TestRun_ResizeReconfigures(t *testing.T) {
	r, _ := newTestRenderer(t)
	win := &scriptedWindow{script: [][]window.Event{
		{{Type: window.EventResize, Width: 300, Height: 100}},
	}}
	surface := &fakeSurface{}

	require.NoError(t, NewEngine(win, surface, r).Run(context.Background()))
	assert.Equal(t, [][2]int{{300, 100}}, surface.configured)
	assert.InDelta(t, 3.0, r.Camera().Aspect(), 1e-6)
}

func TestRun_KeyBindings(t *testing.T) {
	r, dev := newTestRenderer(t)
	win := &scriptedWindow{script: [][]window.Event{
		nil,
		{{Type: window.EventKey, Key: window.KeyR, Pressed: true}},
		{{Type: window.EventKey, Key: window.KeySpace, Pressed: false}},
	}}

	var seen []window.Event
	e := NewEngine(win, &fakeSurface{}, r, WithKeyHandler(func(ev window.Event) {
		seen = append(seen, ev)
	}))
	require.NoError(t, e.Run(context.Background()))

	assert.Len(t, seen, 2)
	require.Len(t, dev.Submissions, 4)
	assert.Len(t, dev.Submissions[2].Passes, 4, "R re-records lighting in the next frame")
	assert.Len(t, dev.Submissions[3].Passes, 1)
}

func TestRun_SkipsFailedFramesThenGivesUp(t *testing.T) {
	r, _ := newTestRenderer(t)
	win := &scriptedWindow{script: make([][]window.Event, 10)}
	surface := &fakeSurface{acquireErr: errors.New("surface outdated")}

	err := NewEngine(win, surface, r, WithMaxFrameErrors(3)).Run(context.Background())
	assert.ErrorIs(t, err, ErrTooManyFrameErrors)
	assert.Equal(t, 3, win.polls)
	assert.Zero(t, surface.presented)
}

func TestRun_ContextAndQuit(t *testing.T) {
	r, _ := newTestRenderer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewEngine(&scriptedWindow{script: make([][]window.Event, 5)}, &fakeSurface{}, r).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	win := &scriptedWindow{script: make([][]window.Event, 5)}
	e := NewEngine(win, &fakeSurface{}, r)
	e.Quit()
	e.Quit()
	assert.NoError(t, e.Run(context.Background()))
	assert.Zero(t, win.polls)
}
