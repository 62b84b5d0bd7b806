package decode

import (
	"encoding/binary"
	"math"
)

// flattenSamples converts packed native-endian f32 bytes from the
// resampler into an interleaved sample slice, applying the volume scalar
// at the point of production so the audio sink never needs to know about
// volume. n caps the number of samples taken from data.
func flattenSamples(data []byte, n int, volume float32) []float32 {
	if max := len(data) / 4; n > max {
		n = max
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.NativeEndian.Uint32(data[i*4:])) * volume
	}
	return out
}

// clampUnit clamps v to [0, 1].
func clampUnit(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
