package transport

import (
	"sync"
	"time"
)

// Clock is the single playhead abstraction consumers see. The Transport is
// the audio-backed implementation; FrameClock stands in when no audio clip is
// bound, so pose consumers never branch on where time comes from.
type Clock interface {
	NowSec() float64
	SeekSec(sec float64)
	Start()
	Stop()
	IsRunning() bool
}

// FrameClock is a free-running wall-time playhead for audio-less playback.
// It has no loop region; the clip binder clamps and stops it at the end of
// the sequence's own timeline.
type FrameClock struct {
	mu        sync.Mutex
	posSec    float64
	running   bool
	startedAt time.Time
}

func NewFrameClock() *FrameClock {
	return &FrameClock{}
}

func (c *FrameClock) NowSec() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return c.posSec
	}
	return c.posSec + time.Since(c.startedAt).Seconds()
}

func (c *FrameClock) SeekSec(sec float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sec < 0 {
		sec = 0
	}
	c.posSec = sec
	c.startedAt = time.Now()
}

func (c *FrameClock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.startedAt = time.Now()
}

func (c *FrameClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.posSec += time.Since(c.startedAt).Seconds()
	c.running = false
}

func (c *FrameClock) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
