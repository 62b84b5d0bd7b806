package decode

import (
	"encoding/binary"
	"math"
	"testing"
)

func packSamples(samples ...float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.NativeEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}

func TestFlattenSamplesAppliesVolume(t *testing.T) {
	t.Parallel()

	data := packSamples(1, -0.5, 0.25)
	got := flattenSamples(data, 3, 0.5)

	want := []float32{0.5, -0.25, 0.125}
	if len(got) != len(want) {
		t.Fatalf("len: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFlattenSamplesCapsAtDataLength(t *testing.T) {
	t.Parallel()

	data := packSamples(1, 1)
	got := flattenSamples(data, 8, 1)
	if len(got) != 2 {
		t.Errorf("len: got %d, want 2", len(got))
	}
}

func TestFlattenSamplesZeroVolumeSilences(t *testing.T) {
	t.Parallel()

	data := packSamples(0.9, -0.9)
	for i, s := range flattenSamples(data, 2, 0) {
		if s != 0 {
			t.Errorf("sample %d: got %v, want 0", i, s)
		}
	}
}

func TestClampUnit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want float32
	}{
		{-0.5, 0},
		{0, 0},
		{0.8, 0.8},
		{1, 1},
		{1.5, 1},
	}
	for _, c := range cases {
		if got := clampUnit(c.in); got != c.want {
			t.Errorf("clampUnit(%v): got %v, want %v", c.in, got, c.want)
		}
	}
}
