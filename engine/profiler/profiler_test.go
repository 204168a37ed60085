package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func TestTickReportsOncePerInterval(t *testing.T) {
	var out bytes.Buffer
	clock := &fakeClock{t: time.Unix(100, 0)}
	p := NewProfiler(
		WithLogger(slog.New(slog.NewTextHandler(&out, nil))),
		WithInterval(time.Second),
		WithClock(clock.now),
	)

	for range 59 {
		clock.t = clock.t.Add(10 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	assert.Empty(t, out.String())

	clock.t = time.Unix(102, 0)
	require.True(t, p.Tick())
	assert.InDelta(t, 30.0, p.Last().FPS, 1e-9)
	assert.Greater(t, p.Last().HeapMB, 0.0)
	assert.Contains(t, out.String(), "msg=profiler")
	assert.Contains(t, out.String(), "fps=30")

	clock.t = clock.t.Add(500 * time.Millisecond)
	assert.False(t, p.Tick())
}
