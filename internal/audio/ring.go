// Package audio owns the real-time output path: a bounded sample ring and
// a miniaudio playback device whose data callback drains the ring without
// blocking, allocating, or panicking.
package audio

import "sync/atomic"

// Ring is a bounded single-producer/single-consumer buffer of sample
// slices. The decoder engine pushes in production order; the device
// callback pops non-blocking. When full, Push discards the oldest buffer
// so memory and staleness stay bounded: the callback always observes the
// freshest audio available, or silence.
type Ring struct {
	ch      chan []float32
	dropped atomic.Int64
}

// NewRing creates a ring holding at most capacity sample buffers.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{ch: make(chan []float32, capacity)}
}

// Push appends buf, evicting the oldest buffer if the ring is full. It
// never blocks the producer.
func (r *Ring) Push(buf []float32) {
	for {
		select {
		case r.ch <- buf:
			return
		default:
		}
		select {
		case <-r.ch:
			r.dropped.Add(1)
		default:
		}
	}
}

// Pop returns the oldest buffer, or nil when the ring is empty. It never
// blocks and is safe to call from the real-time audio callback.
func (r *Ring) Pop() []float32 {
	select {
	case buf := <-r.ch:
		return buf
	default:
		return nil
	}
}

// Len returns the number of buffers currently queued.
func (r *Ring) Len() int { return len(r.ch) }

// Cap returns the ring capacity.
func (r *Ring) Cap() int { return cap(r.ch) }

// Dropped returns how many buffers have been evicted by Push since the
// ring was created.
func (r *Ring) Dropped() int64 { return r.dropped.Load() }
