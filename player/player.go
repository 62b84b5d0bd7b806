// Package player exposes the playback controller: the single entry point
// for transport commands. It sequences the decoder engine and the audio
// sink, owns the playback clock and state machine, and produces immutable
// status snapshots on demand.
package player

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/glintmedia/glint/internal/audio"
	"github.com/glintmedia/glint/internal/clock"
	"github.com/glintmedia/glint/internal/decode"
	"github.com/glintmedia/glint/media"
)

// PlaybackState is the controller-owned transport state. The engine and
// sink keep their own playing flags, driven by commands issued here and
// never read back synchronously.
type PlaybackState int

const (
	Stopped PlaybackState = iota
	Playing
	Paused
	Ended
)

func (s PlaybackState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	}
	return fmt.Sprintf("PlaybackState(%d)", int(s))
}

// Status is a point-in-time snapshot of the player, recomputed from
// controller state on every call and safe to hand to other goroutines.
type Status struct {
	IsPlaying   bool    `json:"isPlaying"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
	Volume      float32 `json:"volume"`
	Path        string  `json:"path,omitempty"`
	HasVideo    bool    `json:"hasVideo"`
	HasAudio    bool    `json:"hasAudio"`
	VideoWidth  int     `json:"videoWidth"`
	VideoHeight int     `json:"videoHeight"`
}

// EventKind discriminates entries on the player's event outlet.
type EventKind int

// EventEndOfStream is delivered once per exhausted source.
const EventEndOfStream EventKind = iota

// Event is a notification for the external presentation collaborator.
type Event struct {
	Kind EventKind
}

// engine is the subset of decode.Engine the controller drives. Accepting
// an interface here decouples the controller from the concrete engine,
// making the state machine testable with a stub.
type engine interface {
	Load(path string, videoOut chan<- media.VideoFrame) (media.Info, uuid.UUID, error)
	Play() error
	Pause() error
	Stop() error
	Seek(seconds float64) error
	SetVolume(level float32) error
	Events() <-chan decode.Event
	Close()
}

// sink is the control surface of the audio output device.
type sink interface {
	Pause()
	Resume()
	Stop()
}

// sinkFactory builds a sink bound to a fresh ring, one per load with an
// audio track. Tests substitute a stub factory; production uses malgo.
type sinkFactory func(log *slog.Logger, ring *audio.Ring) (sink, error)

const defaultVolume = 0.8

// Player is the playback controller. Calls are serialized by an internal
// mutex; no field is ever written outside that lock.
type Player struct {
	mu      sync.Mutex
	log     *slog.Logger
	engine  engine
	clk     *clock.Clock
	newSink sinkFactory

	ringSize int
	sink     sink
	ring     *audio.Ring
	session  uuid.UUID

	state       PlaybackState
	duration    float64
	volume      float32
	path        string
	hasVideo    bool
	hasAudio    bool
	videoWidth  int
	videoHeight int

	events   chan Event
	pumpDone chan struct{}
}

// Option configures a Player.
type Option func(*Player)

// WithLogger sets the logger shared by the controller, engine, and sink.
func WithLogger(log *slog.Logger) Option {
	return func(p *Player) { p.log = log }
}

// WithRingCapacity overrides the audio ring capacity, in sample buffers.
func WithRingCapacity(n int) Option {
	return func(p *Player) { p.ringSize = n }
}

// New creates a Player with an idle decoder engine and no source loaded.
func New(opts ...Option) *Player {
	p := &Player{
		log:      slog.Default(),
		ringSize: media.AudioRingSize,
		volume:   defaultVolume,
		events:   make(chan Event, 1),
		pumpDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With("component", "player")
	p.clk = clock.New()
	p.engine = decode.NewEngine(p.log, p.clk)
	p.newSink = func(log *slog.Logger, ring *audio.Ring) (sink, error) {
		return audio.NewSink(log, media.SampleRate, media.Channels, ring)
	}

	go p.pump()
	return p
}

// newWithEngine wires a Player around stub collaborators for tests.
func newWithEngine(e engine, factory sinkFactory) *Player {
	p := &Player{
		log:      slog.Default(),
		engine:   e,
		newSink:  factory,
		clk:      clock.New(),
		ringSize: media.AudioRingSize,
		volume:   defaultVolume,
		events:   make(chan Event, 1),
		pumpDone: make(chan struct{}),
	}
	go p.pump()
	return p
}

// Load opens a new source. Any prior session is fully stopped and torn
// down first, sink included, before the engine sees the new path. On
// success with an audio track, a fresh ring and sink are constructed; sink
// failure is fatal for the load and leaves the player stopped and empty.
func (p *Player) Load(path string, videoOut chan<- media.VideoFrame) (Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	info, id, err := p.engine.Load(path, videoOut)
	if err != nil {
		return Status{}, fmt.Errorf("load %q: %w", path, err)
	}

	p.session = id
	p.path = info.Path
	p.duration = info.Duration
	p.hasVideo = info.HasVideo
	p.hasAudio = info.HasAudio
	p.videoWidth = info.VideoWidth
	p.videoHeight = info.VideoHeight
	p.clk.Reset()
	p.state = Stopped

	if info.HasAudio {
		ring := audio.NewRing(p.ringSize)
		s, err := p.newSink(p.log, ring)
		if err != nil {
			p.stopLocked()
			p.clearSourceLocked()
			return Status{}, fmt.Errorf("audio sink: %w", err)
		}
		p.ring = ring
		p.sink = s
	}

	return p.statusLocked(), nil
}

// Play starts or resumes playback. Valid from Stopped, Paused, and Ended;
// a no-op while already Playing.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Playing {
		return nil
	}
	if err := p.engine.Play(); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	if p.sink != nil {
		p.sink.Resume()
	}
	p.state = Playing
	p.clk.Run()
	return nil
}

// Pause halts playback. Only effective from Playing; pausing anything else
// is not an error but also not a transition.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Playing {
		return nil
	}
	if err := p.engine.Pause(); err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	if p.sink != nil {
		p.sink.Pause()
	}
	p.state = Paused
	p.clk.Pause()
	return nil
}

// Toggle flips between Playing and not, returning the resulting playing
// flag.
func (p *Player) Toggle() (bool, error) {
	if p.State() == Playing {
		return false, p.Pause()
	}
	return true, p.Play()
}

// Stop ends playback, tears down the audio sink, and resets the position
// to zero. Always safe to call, with or without a loaded source.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked()
}

func (p *Player) stopLocked() error {
	err := p.engine.Stop()
	if p.sink != nil {
		p.sink.Stop()
		p.sink = nil
	}
	p.ring = nil
	p.session = uuid.Nil
	p.state = Stopped
	p.clk.Reset()
	if err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}

func (p *Player) clearSourceLocked() {
	p.path = ""
	p.duration = 0
	p.hasVideo = false
	p.hasAudio = false
	p.videoWidth = 0
	p.videoHeight = 0
}

// Seek clamps seconds to [0, duration], repositions the engine, and
// optimistically moves the playback clock to the clamped target without
// waiting for the engine to complete the seek. Returns the applied value.
func (p *Player) Seek(seconds float64) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t := seconds
	if t < 0 {
		t = 0
	}
	if t > p.duration {
		t = p.duration
	}
	if err := p.engine.Seek(t); err != nil {
		return 0, fmt.Errorf("seek: %w", err)
	}
	p.clk.SetPosition(t)
	return t, nil
}

// SetVolume clamps level to [0,1], caches it, and forwards it to the
// engine. Only samples produced after this call are affected. Returns the
// applied value.
func (p *Player) SetVolume(level float32) (float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := level
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	if err := p.engine.SetVolume(v); err != nil {
		return 0, fmt.Errorf("set volume: %w", err)
	}
	p.volume = v
	return v, nil
}

// Status returns the current snapshot. Pure read, no side effects.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusLocked()
}

func (p *Player) statusLocked() Status {
	pos := p.clk.Position()
	if pos > p.duration {
		pos = p.duration
	}
	if pos < 0 {
		pos = 0
	}
	return Status{
		IsPlaying:   p.state == Playing,
		CurrentTime: pos,
		Duration:    p.duration,
		Volume:      p.volume,
		Path:        p.path,
		HasVideo:    p.hasVideo,
		HasAudio:    p.hasAudio,
		VideoWidth:  p.videoWidth,
		VideoHeight: p.videoHeight,
	}
}

// State returns the current transport state.
func (p *Player) State() PlaybackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Volume returns the cached volume level.
func (p *Player) Volume() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Events returns the outlet for end-of-stream notifications.
func (p *Player) Events() <-chan Event { return p.events }

// Close stops playback and shuts down the engine and the event pump.
func (p *Player) Close() {
	p.mu.Lock()
	_ = p.stopLocked()
	p.mu.Unlock()

	p.engine.Close()
	<-p.pumpDone
}

// pump drains the engine's frame/event outlet for the lifetime of the
// player: audio buffers go into the current ring, the end-of-stream
// sentinel becomes an Ended transition plus an external event. Events from
// a session that has since been torn down are discarded.
func (p *Player) pump() {
	defer close(p.pumpDone)

	for ev := range p.engine.Events() {
		switch ev.Kind {
		case decode.EventAudio:
			p.mu.Lock()
			ring := p.ring
			current := ev.Session == p.session
			p.mu.Unlock()
			if current && ring != nil {
				ring.Push(ev.Audio.Samples)
			}

		case decode.EventEndOfStream:
			p.mu.Lock()
			current := ev.Session == p.session
			if current && p.state == Playing {
				p.state = Ended
				p.clk.Pause()
				p.clk.SetPosition(p.duration)
			}
			p.mu.Unlock()
			if current {
				select {
				case p.events <- Event{Kind: EventEndOfStream}:
				default:
				}
			}
		}
	}
}
