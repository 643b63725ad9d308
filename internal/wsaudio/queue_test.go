package wsaudio

import (
	"bytes"
	"testing"
	"time"
)

func TestQueueFIFOPrefix(t *testing.T) {
	q := NewQueue(10)
	q.SetClientSampleRate(16000)
	q.Start()

	var all []byte
	for i := 0; i < 5; i++ {
		run := bytes.Repeat([]byte{byte(i + 1)}, 7)
		all = append(all, run...)
		q.Put(run)
	}

	var out []byte
	for {
		chunk, ok := q.ReadChunk(nil)
		if !ok {
			break
		}
		if len(chunk) != 10 {
			t.Fatalf("expected chunk of length 10, got %d", len(chunk))
		}
		out = append(out, chunk...)
		if len(out)+10 > len(all) {
			break
		}
	}

	if !bytes.Equal(out, all[:len(out)]) {
		t.Fatalf("output is not a prefix of input: got %v want prefix of %v", out, all)
	}
}

func TestQueueStopWakesReader(t *testing.T) {
	q := NewQueue(1000)
	q.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, ok := q.ReadChunk(nil)
		if ok {
			t.Error("expected ReadChunk to report stopped")
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ReadChunk did not wake up after Stop")
	}
}

func TestQueueIgnoresPutBeforeStart(t *testing.T) {
	q := NewQueue(4)
	q.Put([]byte{1, 2, 3, 4})
	q.Start()
	q.Put([]byte{5, 6, 7, 8})
	chunk, ok := q.ReadChunk(nil)
	if !ok {
		t.Fatal("expected a chunk")
	}
	if !bytes.Equal(chunk, []byte{5, 6, 7, 8}) {
		t.Fatalf("expected only post-Start data, got %v", chunk)
	}
}

func TestSensitivityClamping(t *testing.T) {
	q := NewQueue(10)
	q.SetSensitivity(0.01)
	if got := q.Sensitivity(); got != 0.1 {
		t.Fatalf("expected clamp to 0.1, got %v", got)
	}
	q.SetSensitivity(100)
	if got := q.Sensitivity(); got != 10.0 {
		t.Fatalf("expected clamp to 10.0, got %v", got)
	}
}
