package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func sampleAt(out []byte, i int) float32 {
	return math.Float32frombits(binary.NativeEndian.Uint32(out[i*4:]))
}

func TestFillOutputCopiesSamples(t *testing.T) {
	t.Parallel()

	out := make([]byte, 16)
	fillOutput(out, []float32{0.5, -0.25, 1, 0})

	want := []float32{0.5, -0.25, 1, 0}
	for i, w := range want {
		if got := sampleAt(out, i); got != w {
			t.Errorf("sample %d: got %v, want %v", i, got, w)
		}
	}
}

func TestFillOutputZeroFillsShortBuffer(t *testing.T) {
	t.Parallel()

	out := make([]byte, 16)
	for i := range out {
		out[i] = 0xff // stale data from a previous callback
	}
	fillOutput(out, []float32{0.5})

	if got := sampleAt(out, 0); got != 0.5 {
		t.Errorf("sample 0: got %v, want 0.5", got)
	}
	for i := 1; i < 4; i++ {
		if got := sampleAt(out, i); got != 0 {
			t.Errorf("sample %d: got %v, want 0 (zero-filled)", i, got)
		}
	}
}

func TestFillOutputNilProducesSilence(t *testing.T) {
	t.Parallel()

	out := make([]byte, 32)
	for i := range out {
		out[i] = 0xff
	}
	fillOutput(out, nil)

	for i, b := range out {
		if b != 0 {
			t.Fatalf("byte %d: got %#x, want 0", i, b)
		}
	}
}

func TestFillOutputDiscardsOversizedRemainder(t *testing.T) {
	t.Parallel()

	out := make([]byte, 8)
	fillOutput(out, []float32{1, 2, 3, 4})

	if got := sampleAt(out, 0); got != 1 {
		t.Errorf("sample 0: got %v, want 1", got)
	}
	if got := sampleAt(out, 1); got != 2 {
		t.Errorf("sample 1: got %v, want 2", got)
	}
}
