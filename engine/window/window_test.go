package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventQueueDrainsInOrder(t *testing.T) {
	var q eventQueue
	q.push(Event{Type: EventKey, Key: KeyR, Pressed: true})
	q.push(Event{Type: EventClose})

	assert.Equal(t, []Event{
		{Type: EventKey, Key: KeyR, Pressed: true},
		{Type: EventClose},
	}, q.drain())
	assert.Empty(t, q.drain())
}

func TestResizedCoalescesAndDropsZero(t *testing.T) {
	w := &engineWindow{width: 1280, height: 720}

	w.resized(1280, 720)
	w.resized(0, 0)
	w.resized(800, 600)
	w.resized(800, 600)

	assert.Equal(t, []Event{{Type: EventResize, Width: 800, Height: 600}}, w.queue.drain())
	width, height := w.Size()
	assert.Equal(t, 800, width)
	assert.Equal(t, 600, height)
}

func TestUninitializedWindow(t *testing.T) {
	w := &engineWindow{}
	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.ErrorIs(t, w.Close(), errNotInitialized)
	assert.Empty(t, w.PollEvents())
}
