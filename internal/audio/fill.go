package audio

import (
	"encoding/binary"
	"math"
)

// fillOutput copies one popped sample buffer into the device-provided byte
// buffer as native-endian f32 and zero-fills whatever remains. A nil pcm
// buffer produces full silence. Samples beyond the hardware buffer length
// are discarded; the device callback hands out exactly one buffer per
// invocation and tolerates size mismatches rather than carrying remainders
// across callbacks.
//
// This runs on the real-time audio thread: no allocation, no locks, bounded
// work proportional to len(out).
func fillOutput(out []byte, pcm []float32) {
	n := len(out) / 4
	if n > len(pcm) {
		n = len(pcm)
	}
	for i := 0; i < n; i++ {
		binary.NativeEndian.PutUint32(out[i*4:], math.Float32bits(pcm[i]))
	}
	clear(out[n*4:])
}
