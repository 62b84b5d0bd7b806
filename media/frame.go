// Package media defines the frame types and session metadata that flow
// through the Glint playback pipeline, from demuxing through delivery to
// the audio device and the external display surface.
package media

// Channel and ring sizing used by the decoder engine (producer) and its
// consumers to decouple frame production from consumption. Sized to absorb
// jitter without excessive memory or staleness: at 44.1 kHz stereo a decoded
// audio buffer is typically ~1024 sample frames (~23 ms), so 32 buffers bound
// the audio path at roughly three quarters of a second.
const (
	// EventBufferSize is the capacity of the engine's frame/event outlet.
	EventBufferSize = 128
	// AudioRingSize is the default capacity, in sample buffers, of the
	// ring feeding the real-time audio callback.
	AudioRingSize = 32
	// VideoBufferSize is the recommended capacity for per-load video
	// outlets handed to Load.
	VideoBufferSize = 60
)

// Output format every loaded source is resampled to before samples reach
// the audio ring. Fixed so the sink can open the device once per load
// without renegotiating formats mid-session.
const (
	SampleRate = 44100
	Channels   = 2
)

// Info describes a successfully loaded source. It is produced once per
// load and never mutated afterward.
type Info struct {
	HasVideo    bool
	HasAudio    bool
	VideoWidth  int
	VideoHeight int
	Duration    float64 // seconds
	Path        string
}

// VideoFrame is a single decoded picture converted to RGBA, ready for the
// external display surface. Ownership transfers on send: the engine never
// touches Pixels again once the frame leaves the video outlet.
type VideoFrame struct {
	Width     int
	Height    int
	Pixels    []byte  // RGBA, Width*Height*4 bytes
	Timestamp float64 // seconds
}

// AudioFrame is one resampled buffer of interleaved stereo float samples
// at SampleRate, with volume already applied. Each buffer is consumed at
// most once by the audio sink's real-time callback.
type AudioFrame struct {
	Samples   []float32
	Timestamp float64 // seconds
}
