package audio

import (
	"encoding/binary"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	bitsPerSample = 16
	numChannels   = 1
)

// PCM16ToWAV wraps little-endian int16 PCM in a WAV container via go-audio's
// encoder, matching the format whisper.cpp's /inference endpoint expects for
// multipart uploads. The encoder needs a real io.WriteSeeker to patch its
// header sizes on Close, so this goes through a short-lived temp file rather
// than an in-memory buffer.
func PCM16ToWAV(pcm16 []byte, sampleRate int) []byte {
	tmp, err := os.CreateTemp("", "chunk-*.wav")
	if err != nil {
		return nil
	}
	path := tmp.Name()
	defer os.Remove(path)

	if err = encodeWAV(tmp, pcm16, sampleRate); err != nil {
		tmp.Close()
		return nil
	}
	tmp.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return data
}

// WriteDebugSnippet writes pcm16 to path as a standalone WAV file, used by
// tests and manual debugging to inspect what the chunk queue handed the STT
// engine.
func WriteDebugSnippet(path string, pcm16 []byte, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create debug snippet: %w", err)
	}
	defer f.Close()

	if err = encodeWAV(f, pcm16, sampleRate); err != nil {
		return fmt.Errorf("write debug snippet: %w", err)
	}
	return nil
}

func encodeWAV(f *os.File, pcm16 []byte, sampleRate int) error {
	enc := wav.NewEncoder(f, sampleRate, bitsPerSample, numChannels, 1)
	intBuf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: numChannels},
		Data:           bytesToInts(pcm16),
		SourceBitDepth: bitsPerSample,
	}
	if err := enc.Write(intBuf); err != nil {
		return err
	}
	return enc.Close()
}

func bytesToInts(pcm16 []byte) []int {
	n := len(pcm16) / 2
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = int(int16(binary.LittleEndian.Uint16(pcm16[i*2 : i*2+2])))
	}
	return out
}
