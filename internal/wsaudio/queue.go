// Package wsaudio buffers PCM16 audio chunks arriving over a WebSocket
// connection and hands them to the pipeline worker in fixed-size reads.
package wsaudio

import (
	"sync"
	"time"

	"github.com/talkie-assistant/talkie-core-sub000/internal/audio"
)

// targetSampleRate is the rate the pipeline's STT engine expects; incoming
// audio at any other client rate is resampled to this before buffering.
const targetSampleRate = 16000

// waitGranularity bounds how long ReadChunk blocks between re-checking whether
// the queue was stopped, since Go's sync.Cond has no timed Wait.
const waitGranularity = 300 * time.Millisecond

// Queue is a FIFO of byte runs fed by a single WebSocket producer and
// drained by a single pipeline-worker consumer. Put resamples to 16kHz when
// the client's sample rate differs; ReadChunk blocks until chunkSize bytes are
// available or the queue is stopped.
type Queue struct {
	chunkSize int

	mu               sync.Mutex
	cond             *sync.Cond
	runs             [][]byte
	bufferedLen      int
	started          bool
	sensitivity      float64
	clientSampleRate int
}

// NewQueue creates a queue that assembles reads of exactly chunkSize bytes.
func NewQueue(chunkSize int) *Queue {
	q := &Queue{chunkSize: chunkSize, sensitivity: 1.0}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Start clears any buffered audio and begins accepting Put calls.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.started = true
	q.runs = nil
	q.bufferedLen = 0
}

// Stop wakes any blocked ReadChunk and causes Put to discard further input.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.started = false
	q.cond.Broadcast()
}

// SetClientSampleRate records the browser's actual capture rate. A zero or
// negative rate is treated as "unknown", which Put interprets as 16kHz.
func (q *Queue) SetClientSampleRate(rate int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.clientSampleRate = rate
}

// Put appends a chunk of raw PCM16 bytes from the WebSocket handler,
// resampling to 16kHz first if the client is capturing at a different rate.
// Empty input, a stopped queue, or data that resamples to nothing are no-ops.
func (q *Queue) Put(data []byte) {
	if len(data) == 0 {
		return
	}

	q.mu.Lock()
	rateIn := q.clientSampleRate
	q.mu.Unlock()
	if rateIn <= 0 {
		rateIn = targetSampleRate
	}
	if rateIn != targetSampleRate {
		data = audio.ResamplePCM16(data, rateIn, targetSampleRate)
	}
	if len(data) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.started {
		return
	}
	q.runs = append(q.runs, data)
	q.bufferedLen += len(data)
	q.cond.Broadcast()
}

// ReadChunk blocks until chunkSize bytes are buffered, then returns exactly
// that many, splitting the head run if it straddles the boundary. Returns
// (nil, false) once the queue has been stopped, even if bytes are still
// buffered. onLevel, if non-nil, is invoked with the chunk's RMS level
// before ReadChunk returns.
func (q *Queue) ReadChunk(onLevel func(float64)) ([]byte, bool) {
	out := q.readChunk()
	if out == nil {
		return nil, false
	}
	if onLevel != nil {
		onLevel(audio.RMS(out))
	}
	return out, true
}

func (q *Queue) readChunk() []byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.started && q.bufferedLen < q.chunkSize {
		q.waitWithTimeout()
	}
	if !q.started || q.bufferedLen < q.chunkSize {
		return nil
	}

	out := make([]byte, 0, q.chunkSize)
	for len(out) < q.chunkSize && len(q.runs) > 0 {
		run := q.runs[0]
		q.runs = q.runs[1:]
		q.bufferedLen -= len(run)

		take := q.chunkSize - len(out)
		if take > len(run) {
			take = len(run)
		}
		out = append(out, run[:take]...)

		if take < len(run) {
			remainder := run[take:]
			q.runs = append([][]byte{remainder}, q.runs...)
			q.bufferedLen += len(remainder)
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// waitWithTimeout re-checks the stop condition at waitGranularity intervals,
// standing in for sync.Cond's lack of a timed Wait.
func (q *Queue) waitWithTimeout() {
	timer := time.AfterFunc(waitGranularity, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer timer.Stop()
	q.cond.Wait()
}

// Sensitivity returns the current gain-calibration multiplier.
func (q *Queue) Sensitivity() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sensitivity
}

// SetSensitivity clamps and stores a new gain-calibration multiplier.
func (q *Queue) SetSensitivity(value float64) {
	clamped := value
	if clamped < 0.1 {
		clamped = 0.1
	}
	if clamped > 10.0 {
		clamped = 10.0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sensitivity = clamped
}
