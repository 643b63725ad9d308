package audio

import "testing"

func TestResamplePCM16SameRateNoop(t *testing.T) {
	data := int16sToBytes([]int16{1, 2, 3, 4, 5, 6})
	out := ResamplePCM16(data, 16000, 16000)
	if len(out) != len(data) {
		t.Fatalf("expected unchanged length, got %d want %d", len(out), len(data))
	}
}

func TestResamplePCM16Halves(t *testing.T) {
	samples := make([]int16, 100)
	for i := range samples {
		samples[i] = int16(i)
	}
	data := int16sToBytes(samples)
	out := ResamplePCM16(data, 32000, 16000)
	wantLen := len(data) / 2
	if diff := len(out) - wantLen; diff > 2 || diff < -2 {
		t.Fatalf("expected length ~%d, got %d", wantLen, len(out))
	}
}

func TestResamplePCM16ShortInputUnchanged(t *testing.T) {
	if out := ResamplePCM16([]byte{0x01}, 8000, 16000); len(out) != 1 {
		t.Fatalf("expected short input to pass through unchanged, got %v", out)
	}
}
