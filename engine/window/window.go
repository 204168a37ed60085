package window

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// EventType identifies the kind of an Event.
type EventType int

const (
	// EventResize reports a new framebuffer size in Width and Height.
	EventResize EventType = iota
	// EventKey reports a key press or release in Key and Pressed.
	EventKey
	// EventClose reports that the user asked to close the window.
	EventClose
)

// Event is one input or window event. Only the fields of its Type are set.
type Event struct {
	Type    EventType
	Width   int
	Height  int
	Key     Key
	Pressed bool
}

// Window is a platform window that collects input into an event stream. Events are gathered
// while PollEvents runs the platform message pump and are returned in arrival order.
type Window interface {
	// PollEvents processes pending platform messages without blocking and returns every event
	// since the previous call. Must be called from the main thread.
	//
	// Returns:
	//   - []Event: the events in arrival order, possibly empty
	PollEvents() []Event

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true until the window is closed.
	IsRunning() bool

	// Size returns the framebuffer size in pixels.
	Size() (width, height int)

	// Close destroys the window and releases platform resources.
	//
	// Returns:
	//   - error: error if the window was never created
	Close() error
}

// eventQueue buffers events pushed from platform callbacks until they are drained.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
}

func (q *eventQueue) push(e Event) {
	q.mu.Lock()
	q.events = append(q.events, e)
	q.mu.Unlock()
}

func (q *eventQueue) drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title string

	// width and height track the framebuffer size, which differs from the window size on high-DPI displays.
	width, height int

	minWidth, minHeight int

	queue eventQueue

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a window with the given options.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window
//   - error: error if the platform window cannot be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:     "oxy-voxel",
		width:     1280,
		height:    720,
		minWidth:  320,
		minHeight: 200,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *engineWindow) PollEvents() []Event {
	platformProcessMessages(w)
	return w.queue.drain()
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Size() (int, int) {
	return w.width, w.height
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

// resized records a framebuffer size change. Zero sizes come from minimized windows and are dropped.
func (w *engineWindow) resized(width, height int) {
	if width <= 0 || height <= 0 || (width == w.width && height == w.height) {
		return
	}
	w.width, w.height = width, height
	w.queue.push(Event{Type: EventResize, Width: width, Height: height})
}
