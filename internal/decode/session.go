package decode

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/asticode/go-astiav"
	"github.com/google/uuid"

	"github.com/glintmedia/glint/media"
)

// Container duration and whole-file seek targets are expressed in
// AV_TIME_BASE (microsecond) units.
const microsecondsPerSecond = 1e6

// track couples one selected stream with its opened codec context.
type track struct {
	cc       *astiav.CodecContext
	index    int
	timeBase astiav.Rational
}

func (t *track) close() {
	if t != nil && t.cc != nil {
		t.cc.Free()
	}
}

// session owns every native handle belonging to one loaded source: the
// demuxer, at most one audio and one video decoder, their converters, and
// the reusable packet/frame scratch space. It lives entirely on the engine
// goroutine and is replaced wholesale on Load and Stop, never reset
// field by field.
type session struct {
	id       uuid.UUID
	log      *slog.Logger
	inputCtx *astiav.FormatContext
	audio    *track
	video    *track

	resampler *astiav.SoftwareResampleContext
	scaler    *astiav.SoftwareScaleContext

	videoOut chan<- media.VideoFrame
	info     media.Info

	pkt      *astiav.Packet
	decFrame *astiav.Frame
	resFrame *astiav.Frame
	sclFrame *astiav.Frame

	// lastTS is the most recent timestamp emitted on either modality,
	// used by the engine to pace decoding against the playback clock.
	lastTS       float64
	droppedVideo int64
}

// openSession opens the container at path and prepares decoders and
// converters for the first audio and first video stream. Failure to set up
// a track leaves that modality absent; failure to open the container is
// returned as an error and no session exists.
func openSession(log *slog.Logger, path string, videoOut chan<- media.VideoFrame) (*session, error) {
	inputCtx := astiav.AllocFormatContext()
	if inputCtx == nil {
		return nil, errors.New("alloc format context")
	}

	if err := inputCtx.OpenInput(path, nil, nil); err != nil {
		inputCtx.Free()
		return nil, fmt.Errorf("open input: %w", err)
	}

	s := &session{
		id:       uuid.New(),
		inputCtx: inputCtx,
		videoOut: videoOut,
		pkt:      astiav.AllocPacket(),
		decFrame: astiav.AllocFrame(),
		resFrame: astiav.AllocFrame(),
		sclFrame: astiav.AllocFrame(),
	}
	s.log = log.With("session", s.id.String(), "path", path)

	if err := inputCtx.FindStreamInfo(nil); err != nil {
		s.close()
		return nil, fmt.Errorf("find stream info: %w", err)
	}

	var audioStream, videoStream *astiav.Stream
	for _, st := range inputCtx.Streams() {
		switch st.CodecParameters().MediaType() {
		case astiav.MediaTypeAudio:
			if audioStream == nil {
				audioStream = st
			}
		case astiav.MediaTypeVideo:
			if videoStream == nil {
				videoStream = st
			}
		}
	}

	if audioStream != nil {
		if err := s.setupAudio(audioStream); err != nil {
			s.log.Warn("audio track unavailable", "error", err)
		}
	}
	if videoStream != nil {
		if err := s.setupVideo(videoStream); err != nil {
			s.log.Warn("video track unavailable", "error", err)
		}
	}

	s.info = media.Info{
		HasAudio: s.audio != nil,
		HasVideo: s.video != nil,
		Duration: float64(inputCtx.Duration()) / microsecondsPerSecond,
		Path:     path,
	}
	if s.video != nil {
		s.info.VideoWidth = s.video.cc.Width()
		s.info.VideoHeight = s.video.cc.Height()
	}

	return s, nil
}

// openTrack finds and opens a decoder for the stream's codec.
func openTrack(st *astiav.Stream) (*track, error) {
	cid := st.CodecParameters().CodecID()
	codec := astiav.FindDecoder(cid)
	if codec == nil {
		return nil, fmt.Errorf("no decoder for codec %s", cid.Name())
	}

	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return nil, errors.New("alloc codec context")
	}
	if err := cc.FromCodecParameters(st.CodecParameters()); err != nil {
		cc.Free()
		return nil, fmt.Errorf("apply codec parameters: %w", err)
	}
	if err := cc.Open(codec, nil); err != nil {
		cc.Free()
		return nil, fmt.Errorf("open codec: %w", err)
	}

	return &track{cc: cc, index: st.Index(), timeBase: st.TimeBase()}, nil
}

func (s *session) setupAudio(st *astiav.Stream) error {
	t, err := openTrack(st)
	if err != nil {
		return err
	}

	resampler := astiav.AllocSoftwareResampleContext()
	if resampler == nil {
		t.close()
		return errors.New("alloc resample context")
	}

	s.audio = t
	s.resampler = resampler
	return nil
}

func (s *session) setupVideo(st *astiav.Stream) error {
	t, err := openTrack(st)
	if err != nil {
		return err
	}

	scaler, err := astiav.CreateSoftwareScaleContext(
		t.cc.Width(), t.cc.Height(), t.cc.PixelFormat(),
		t.cc.Width(), t.cc.Height(), astiav.PixelFormatRgba,
		astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear),
	)
	if err != nil {
		t.close()
		return fmt.Errorf("create scale context: %w", err)
	}

	s.video = t
	s.scaler = scaler
	return nil
}

// seek repositions the container at t seconds and flushes both decoders so
// no stale frames survive the jump. The engine resets lastTS to the target
// so pacing resumes from the new position.
func (s *session) seek(t float64) {
	ts := int64(t * microsecondsPerSecond)
	if err := s.inputCtx.SeekFrame(-1, ts, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
		s.log.Warn("seek failed", "target", t, "error", err)
		return
	}
	if s.audio != nil {
		s.audio.cc.FlushBuffers()
	}
	if s.video != nil {
		s.video.cc.FlushBuffers()
	}
	s.lastTS = t
}

// step pulls the next packet and routes it to the matching decoder.
// It returns true when the container is exhausted. Per-packet failures are
// absorbed: the loop favors staying alive over exact fidelity.
func (s *session) step(volume float32, emit func(media.AudioFrame)) (eof bool) {
	s.pkt.Unref()
	if err := s.inputCtx.ReadFrame(s.pkt); err != nil {
		if errors.Is(err, astiav.ErrEof) {
			return true
		}
		s.log.Debug("read packet", "error", err)
		return false
	}

	switch {
	case s.audio != nil && s.pkt.StreamIndex() == s.audio.index:
		s.decodeAudio(volume, emit)
	case s.video != nil && s.pkt.StreamIndex() == s.video.index:
		s.decodeVideo()
	}
	return false
}

func (s *session) decodeAudio(volume float32, emit func(media.AudioFrame)) {
	if err := s.audio.cc.SendPacket(s.pkt); err != nil {
		s.log.Debug("send audio packet", "error", err)
		return
	}

	for {
		if err := s.audio.cc.ReceiveFrame(s.decFrame); err != nil {
			return
		}

		s.resFrame.Unref()
		s.resFrame.SetChannelLayout(astiav.ChannelLayoutStereo)
		s.resFrame.SetSampleFormat(astiav.SampleFormatFlt)
		s.resFrame.SetSampleRate(media.SampleRate)

		if err := s.resampler.ConvertFrame(s.decFrame, s.resFrame); err != nil {
			s.log.Debug("resample", "error", err)
			continue
		}
		n := s.resFrame.NbSamples()
		if n == 0 {
			continue
		}
		data, err := s.resFrame.Data().Bytes(0)
		if err != nil {
			s.log.Debug("audio frame bytes", "error", err)
			continue
		}

		ts := ptsSeconds(s.decFrame.Pts(), s.audio.timeBase)
		s.lastTS = ts
		emit(media.AudioFrame{
			Samples:   flattenSamples(data, n*media.Channels, volume),
			Timestamp: ts,
		})
	}
}

func (s *session) decodeVideo() {
	if err := s.video.cc.SendPacket(s.pkt); err != nil {
		s.log.Debug("send video packet", "error", err)
		return
	}

	for {
		if err := s.video.cc.ReceiveFrame(s.decFrame); err != nil {
			return
		}

		s.sclFrame.Unref()
		if err := s.scaler.ScaleFrame(s.decFrame, s.sclFrame); err != nil {
			s.log.Debug("scale", "error", err)
			continue
		}
		data, err := s.sclFrame.Data().Bytes(1)
		if err != nil {
			s.log.Debug("video frame bytes", "error", err)
			continue
		}

		pixels := make([]byte, len(data))
		copy(pixels, data)

		ts := ptsSeconds(s.decFrame.Pts(), s.video.timeBase)
		if ts > s.lastTS {
			s.lastTS = ts
		}

		// Video bypasses the engine outlet and goes straight to the
		// per-load consumer. A consumer that cannot keep up loses
		// frames instead of stalling the decode loop.
		select {
		case s.videoOut <- media.VideoFrame{
			Width:     s.video.cc.Width(),
			Height:    s.video.cc.Height(),
			Pixels:    pixels,
			Timestamp: ts,
		}:
		default:
			s.droppedVideo++
			if s.droppedVideo%100 == 1 {
				s.log.Debug("video consumer lagging", "dropped", s.droppedVideo)
			}
		}
	}
}

// close releases every native handle owned by the session. Idempotent per
// field because each handle is freed exactly once when the session value
// is dropped.
func (s *session) close() {
	if s.pkt != nil {
		s.pkt.Free()
	}
	if s.decFrame != nil {
		s.decFrame.Free()
	}
	if s.resFrame != nil {
		s.resFrame.Free()
	}
	if s.sclFrame != nil {
		s.sclFrame.Free()
	}
	if s.scaler != nil {
		s.scaler.Free()
	}
	if s.resampler != nil {
		s.resampler.Free()
	}
	s.audio.close()
	s.video.close()
	if s.inputCtx != nil {
		s.inputCtx.CloseInput()
		s.inputCtx.Free()
	}
}

// ptsSeconds converts a stream timestamp to seconds using the stream's
// time base. Frames without a timestamp report zero, matching the rest of
// the pipeline's "best effort" timing.
func ptsSeconds(pts int64, tb astiav.Rational) float64 {
	if pts == astiav.NoPtsValue {
		return 0
	}
	return float64(pts) * tb.Float64()
}
