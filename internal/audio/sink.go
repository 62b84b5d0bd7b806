package audio

import (
	"fmt"
	"log/slog"

	"github.com/gen2brain/malgo"
)

type sinkCommand int

const (
	cmdPause sinkCommand = iota
	cmdResume
	cmdStop
)

// Sink owns a miniaudio playback device and a small control goroutine. The
// device's data callback pulls sample buffers from the ring; the control
// goroutine applies pause/resume/stop requests off the real-time path.
//
// The device starts producing output as soon as the sink is constructed.
// Pause and Resume only gate the already-running stream; callers that want
// silence until the first Play simply have nothing in the ring yet.
type Sink struct {
	log  *slog.Logger
	ctrl chan sinkCommand
	done chan struct{}
}

// NewSink opens the default output device at the given format and starts
// it immediately. Device or context failure is returned to the caller and
// fails the load that requested audio.
func NewSink(log *slog.Logger, sampleRate, channels int, ring *Ring) (*Sink, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "audio-sink")

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Debug("miniaudio", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = uint32(channels)
	cfg.SampleRate = uint32(sampleRate)
	cfg.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		// Real-time path: one non-blocking pop, copy, zero-fill. No
		// allocation, no locks, no logging.
		Data: func(out, _ []byte, _ uint32) {
			fillOutput(out, ring.Pop())
		},
	}

	device, err := malgo.InitDevice(mctx.Context, cfg, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("open output device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("start output device: %w", err)
	}

	s := &Sink{
		log:  log,
		ctrl: make(chan sinkCommand, 16),
		done: make(chan struct{}),
	}

	go s.run(mctx, device)

	log.Debug("audio device started", "sample_rate", sampleRate, "channels", channels)
	return s, nil
}

// run applies control commands to the device until Stop or until every
// Sink handle has been dropped and the channel drained. Device errors
// after startup are logged, never surfaced.
func (s *Sink) run(mctx *malgo.AllocatedContext, device *malgo.Device) {
	defer close(s.done)
	defer func() {
		device.Uninit()
		if err := mctx.Uninit(); err != nil {
			s.log.Warn("audio context teardown", "error", err)
		}
		mctx.Free()
	}()

	for cmd := range s.ctrl {
		switch cmd {
		case cmdPause:
			if err := device.Stop(); err != nil {
				s.log.Warn("pause device", "error", err)
			}
		case cmdResume:
			if err := device.Start(); err != nil {
				s.log.Warn("resume device", "error", err)
			}
		case cmdStop:
			if err := device.Stop(); err != nil {
				s.log.Warn("stop device", "error", err)
			}
			return
		}
	}
}

// Pause asynchronously halts the device. Fire-and-forget.
func (s *Sink) Pause() { s.send(cmdPause) }

// Resume asynchronously restarts a paused device. Fire-and-forget.
func (s *Sink) Resume() { s.send(cmdResume) }

// Stop halts the device and tears down the control goroutine along with
// the underlying device and context. Safe to call more than once.
func (s *Sink) Stop() { s.send(cmdStop) }

func (s *Sink) send(cmd sinkCommand) {
	select {
	case s.ctrl <- cmd:
	case <-s.done:
	}
}
