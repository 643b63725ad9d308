package audio

import (
	"encoding/binary"
	"testing"
)

func int16sToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func TestRMSEmptyAndShort(t *testing.T) {
	if RMS(nil) != 0 {
		t.Fatal("expected 0 for nil input")
	}
	if RMS([]byte{}) != 0 {
		t.Fatal("expected 0 for empty input")
	}
	if RMS([]byte{0x01}) != 0 {
		t.Fatal("expected 0 for single byte input")
	}
}

func TestRMSAllZero(t *testing.T) {
	chunk := int16sToBytes([]int16{0, 0, 0, 0})
	if got := RMS(chunk); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestRMSFullScale(t *testing.T) {
	chunk := int16sToBytes([]int16{32767, -32767, 32767, -32767})
	if got := RMS(chunk); got < 0.999 || got > 1.0 {
		t.Fatalf("expected ~1.0, got %v", got)
	}
}

func TestRMSBounded(t *testing.T) {
	for _, samples := range [][]int16{
		{1, 2, 3},
		{-32768, 32767, 0},
		{100},
	} {
		got := RMS(int16sToBytes(samples))
		if got < 0 || got > 1 {
			t.Fatalf("RMS(%v) = %v out of [0,1]", samples, got)
		}
	}
}

func TestRMSIgnoresTrailingOddByte(t *testing.T) {
	chunk := append(int16sToBytes([]int16{100, 200}), 0xFF)
	got := RMS(chunk)
	want := RMS(int16sToBytes([]int16{100, 200}))
	if got != want {
		t.Fatalf("trailing odd byte changed result: got %v want %v", got, want)
	}
}
