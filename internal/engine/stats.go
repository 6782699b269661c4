package engine

import (
	"sync"
	"time"
)

// DefaultFrameWindow is the number of frame intervals averaged by a
// FrameMeter created with a non-positive window.
const DefaultFrameWindow = 60

// FrameMeter keeps a sliding window of frame intervals. Tick is called by the
// render loop; the readers may run on any goroutine.
type FrameMeter struct {
	mu     sync.Mutex
	now    func() time.Time
	window []time.Duration
	next   int
	filled int
	sum    time.Duration
	last   time.Time
	frames int64
}

// NewFrameMeter returns a meter averaging over the last window intervals.
func NewFrameMeter(window int) *FrameMeter {
	if window <= 0 {
		window = DefaultFrameWindow
	}
	return &FrameMeter{now: time.Now, window: make([]time.Duration, window)}
}

// Tick records the end of a frame.
func (m *FrameMeter) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.now()
	m.frames++
	if m.last.IsZero() {
		m.last = t
		return
	}
	d := t.Sub(m.last)
	m.last = t
	m.sum -= m.window[m.next]
	m.window[m.next] = d
	m.sum += d
	m.next = (m.next + 1) % len(m.window)
	if m.filled < len(m.window) {
		m.filled++
	}
}

// FrameTime is the mean interval over the window, zero before two ticks.
func (m *FrameMeter) FrameTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.filled == 0 {
		return 0
	}
	return m.sum / time.Duration(m.filled)
}

// FPS is the reciprocal of FrameTime.
func (m *FrameMeter) FPS() float64 {
	ft := m.FrameTime()
	if ft <= 0 {
		return 0
	}
	return float64(time.Second) / float64(ft)
}

// Frames is the total number of ticks.
func (m *FrameMeter) Frames() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}
