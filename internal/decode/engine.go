// Package decode runs the demux/decode/convert state machine on its own
// goroutine. The engine owns all native decode state exclusively; the rest
// of the process talks to it only through an ordered command channel and a
// frame/event outlet, so no decode memory is ever shared across goroutines.
package decode

import (
	"errors"
	"log/slog"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/google/uuid"

	"github.com/glintmedia/glint/internal/clock"
	"github.com/glintmedia/glint/media"
)

func init() {
	astiav.SetLogLevel(astiav.LogLevelQuiet)
}

// ErrEngineClosed is returned by every command once the engine goroutine
// has exited. Callers treat it as "engine unavailable".
var ErrEngineClosed = errors.New("decoder engine unavailable")

const (
	// commandBufferSize bounds the command inlet. A full inlet blocks the
	// caller, which is acceptable because commands are user-paced.
	commandBufferSize = 32
	// idleDelay is how long the loop sleeps when there is nothing to
	// decode, instead of busy-spinning.
	idleDelay = 10 * time.Millisecond
	// pacingLead is how far ahead of the playback clock, in seconds, the
	// decoder is allowed to run before it idles. Keeps the audio ring
	// fresh and bounds how much decoded data a seek throws away.
	pacingLead = 0.3
	// defaultVolume matches the level a player starts at before any
	// SetVolume arrives.
	defaultVolume = 0.8
)

// EventKind discriminates entries on the engine's frame/event outlet.
type EventKind int

const (
	// EventAudio carries one resampled audio buffer.
	EventAudio EventKind = iota
	// EventEndOfStream is the sentinel emitted once when the loaded
	// source runs out of packets.
	EventEndOfStream
)

// Event is one entry on the frame/event outlet. Session identifies which
// load produced it, letting the consumer discard stragglers from a
// torn-down session that race a new load.
type Event struct {
	Kind    EventKind
	Session uuid.UUID
	Audio   media.AudioFrame // valid when Kind == EventAudio
}

type commandOp int

const (
	opLoad commandOp = iota
	opPlay
	opPause
	opStop
	opSeek
	opSetVolume
	opQuit
)

type command struct {
	op       commandOp
	path     string
	videoOut chan<- media.VideoFrame
	reply    chan loadResult
	seek     float64
	volume   float32
}

type loadResult struct {
	info    media.Info
	session uuid.UUID
	err     error
}

// Engine is the handle held by the playback controller. All methods are
// safe for concurrent use; they only ever touch channels.
type Engine struct {
	log    *slog.Logger
	clk    *clock.Clock
	cmds   chan command
	events chan Event
	done   chan struct{}

	droppedEvents int64
}

// NewEngine starts the decode goroutine. The clock is read-only from the
// engine's perspective: the controller drives its transitions, the decode
// loop paces against its position.
func NewEngine(log *slog.Logger, clk *clock.Clock) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		log:    log.With("component", "decoder"),
		clk:    clk,
		cmds:   make(chan command, commandBufferSize),
		events: make(chan Event, media.EventBufferSize),
		done:   make(chan struct{}),
	}
	go e.run()
	return e
}

// Load opens the source at path and blocks until the engine reports the
// session metadata or an open failure. Video frames decoded for this
// session are pushed to videoOut, bypassing the engine outlet.
func (e *Engine) Load(path string, videoOut chan<- media.VideoFrame) (media.Info, uuid.UUID, error) {
	reply := make(chan loadResult, 1)
	if err := e.send(command{op: opLoad, path: path, videoOut: videoOut, reply: reply}); err != nil {
		return media.Info{}, uuid.Nil, err
	}
	select {
	case res := <-reply:
		return res.info, res.session, res.err
	case <-e.done:
		return media.Info{}, uuid.Nil, ErrEngineClosed
	}
}

// Play sets the engine's playing flag. Frame production happens only in
// the decode loop, gated on that flag.
func (e *Engine) Play() error { return e.send(command{op: opPlay}) }

// Pause clears the playing flag without touching decode state.
func (e *Engine) Pause() error { return e.send(command{op: opPause}) }

// Stop clears the playing flag and releases the whole session. Idempotent.
func (e *Engine) Stop() error { return e.send(command{op: opStop}) }

// Seek repositions the loaded source. A no-op when nothing is loaded.
func (e *Engine) Seek(seconds float64) error {
	return e.send(command{op: opSeek, seek: seconds})
}

// SetVolume clamps level to [0,1] and applies it to all samples produced
// afterward. Already-emitted buffers are unaffected.
func (e *Engine) SetVolume(level float32) error {
	return e.send(command{op: opSetVolume, volume: level})
}

// Events returns the frame/event outlet. It is closed when the engine
// goroutine exits.
func (e *Engine) Events() <-chan Event { return e.events }

// Close shuts the engine down and waits for the decode goroutine to
// release its session. Safe to call more than once.
func (e *Engine) Close() {
	_ = e.send(command{op: opQuit})
	<-e.done
}

func (e *Engine) send(c command) error {
	select {
	case e.cmds <- c:
		return nil
	case <-e.done:
		return ErrEngineClosed
	}
}

// run is the decode loop: poll one command, then do one bounded unit of
// work (decode a packet, or sleep). Cancellation is cooperative; Stop and
// Quit take effect at the next poll.
func (e *Engine) run() {
	defer close(e.done)
	defer close(e.events)

	var (
		sess    *session
		playing bool
		volume  float32 = defaultVolume
	)

	defer func() {
		if sess != nil {
			sess.close()
		}
	}()

	for {
		select {
		case c := <-e.cmds:
			switch c.op {
			case opLoad:
				if sess != nil {
					sess.close()
					sess = nil
				}
				playing = false
				next, err := openSession(e.log, c.path, c.videoOut)
				if err != nil {
					e.log.Error("load failed", "path", c.path, "error", err)
					c.reply <- loadResult{err: err}
					continue
				}
				sess = next
				e.log.Info("source loaded",
					"path", c.path,
					"session", sess.id.String(),
					"has_audio", sess.info.HasAudio,
					"has_video", sess.info.HasVideo,
					"duration", sess.info.Duration,
				)
				c.reply <- loadResult{info: sess.info, session: sess.id}

			case opPlay:
				playing = true

			case opPause:
				playing = false

			case opStop:
				playing = false
				if sess != nil {
					sess.close()
					sess = nil
				}

			case opSeek:
				if sess != nil {
					sess.seek(c.seek)
				}

			case opSetVolume:
				volume = clampUnit(c.volume)

			case opQuit:
				return
			}
			continue

		default:
		}

		if !playing || sess == nil {
			time.Sleep(idleDelay)
			continue
		}

		// Pace against the playback clock: once decode runs far enough
		// ahead, idle and keep polling commands.
		if sess.lastTS > e.clk.Position()+pacingLead {
			time.Sleep(idleDelay)
			continue
		}

		if eof := sess.step(volume, func(f media.AudioFrame) {
			e.emitAudio(sess.id, f)
		}); eof {
			e.log.Info("end of stream", "session", sess.id.String())
			e.events <- Event{Kind: EventEndOfStream, Session: sess.id}
			playing = false
		}
	}
}

// emitAudio forwards one audio buffer on the outlet without ever blocking
// the decode loop. The outlet is drained continuously by the controller's
// pump, so drops indicate a stalled consumer, not normal operation.
func (e *Engine) emitAudio(id uuid.UUID, f media.AudioFrame) {
	select {
	case e.events <- Event{Kind: EventAudio, Session: id, Audio: f}:
	default:
		e.droppedEvents++
		if e.droppedEvents%256 == 1 {
			e.log.Warn("event outlet full, dropping audio", "dropped", e.droppedEvents)
		}
	}
}
