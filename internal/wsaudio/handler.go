package wsaudio

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handshake is the first text frame the client sends, declaring how its
// captured audio is shaped so the queue can resample to 16kHz if needed.
type handshake struct {
	SampleRate  int `json:"sample_rate"`
	ChunkMillis int `json:"chunk_ms"`
}

// controlFrame is a later text frame adjusting capture behavior mid-session.
type controlFrame struct {
	Action      string  `json:"action"`
	Sensitivity float64 `json:"sensitivity,omitempty"`
}

// SessionStarter is handed a fresh Queue and session id for each accepted
// WebSocket connection; it is expected to start a pipeline worker bound to
// that queue and run until the connection closes.
type SessionStarter func(sessionID string, q *Queue)

const (
	defaultSampleRate  = 16000
	defaultChunkMillis = 100
	bytesPerSample     = 2
)

// Handler upgrades incoming WebSocket connections, performs the sample-rate
// handshake, and pumps binary frames into a per-connection chunk queue.
type Handler struct {
	onSession SessionStarter
}

// NewHandler creates a handler that calls onSession once per accepted
// connection with a queue ready to receive Put calls.
func NewHandler(onSession SessionStarter) *Handler {
	return &Handler{onSession: onSession}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	hs, err := readHandshake(conn)
	if err != nil {
		slog.Error("read handshake", "error", err)
		return
	}

	sampleRate := hs.SampleRate
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	chunkMillis := hs.ChunkMillis
	if chunkMillis <= 0 {
		chunkMillis = defaultChunkMillis
	}
	chunkSize := (defaultSampleRate * bytesPerSample * chunkMillis) / 1000

	q := NewQueue(chunkSize)
	q.SetClientSampleRate(sampleRate)
	q.Start()
	defer q.Stop()

	sessionID := uuid.NewString()
	slog.Info("audio session started", "session_id", sessionID, "sample_rate", sampleRate, "chunk_size_bytes", chunkSize)

	if h.onSession != nil {
		go h.onSession(sessionID, q)
	}

	h.pumpFrames(conn, q)
	slog.Info("audio session ended", "session_id", sessionID)
}

func (h *Handler) pumpFrames(conn *websocket.Conn, q *Queue) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		switch msgType {
		case websocket.BinaryMessage:
			q.Put(data)
		case websocket.TextMessage:
			h.handleControlFrame(data, q)
		}
	}
}

func (h *Handler) handleControlFrame(data []byte, q *Queue) {
	var cf controlFrame
	if json.Unmarshal(data, &cf) != nil {
		return
	}
	if cf.Action == "set_sensitivity" {
		q.SetSensitivity(cf.Sensitivity)
	}
}

func readHandshake(conn *websocket.Conn) (*handshake, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var hs handshake
	if err = json.Unmarshal(data, &hs); err != nil {
		return nil, err
	}
	return &hs, nil
}
