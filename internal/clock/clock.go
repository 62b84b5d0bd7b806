// Package clock provides the monotonic playback clock owned by the player.
// The decoder engine paces packet consumption against it, and status
// snapshots derive their current-time field from it, giving the pipeline a
// single time authority instead of relying on emergent channel backpressure.
package clock

import (
	"sync"
	"time"
)

// Clock tracks a playback position in seconds. While running, the position
// advances with wall-clock time; paused, it holds still. Safe for use from
// the caller, the pump goroutine, and the decoder engine concurrently.
type Clock struct {
	mu      sync.Mutex
	base    float64   // position captured at the last transition
	since   time.Time // wall time of the last transition
	running bool
}

// New returns a stopped clock at position zero.
func New() *Clock {
	return &Clock{}
}

// Position returns the current playback position in seconds.
func (c *Clock) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position(time.Now())
}

// Run starts the clock advancing. No-op if already running.
func (c *Clock) Run() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.since = time.Now()
	c.running = true
}

// Pause freezes the clock at its current position. No-op if not running.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	now := time.Now()
	c.base = c.position(now)
	c.running = false
}

// SetPosition moves the clock to pos without changing its run state. Used
// for optimistic seek updates: the engine may still be completing the
// container seek when the new position becomes visible.
func (c *Clock) SetPosition(pos float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = pos
	c.since = time.Now()
}

// Reset stops the clock and returns it to position zero.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = 0
	c.running = false
}

// Running reports whether the clock is advancing.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Clock) position(now time.Time) float64 {
	if !c.running {
		return c.base
	}
	return c.base + now.Sub(c.since).Seconds()
}
