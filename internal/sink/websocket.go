package sink

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexlipsync/internal/blendshape"
)

// WSBlendshapeMessage carries one weight update to the renderer
type WSBlendshapeMessage struct {
	Type      string  `json:"type"`
	Session   string  `json:"session"`
	Sequence  int64   `json:"sequence"`
	Index     int     `json:"index"`
	Name      string  `json:"name"`
	Intensity float64 `json:"intensity"`
	HintMs    int64   `json:"hint_ms"`
	Timestamp string  `json:"timestamp"`
}

// WSResetMessage tells the renderer to zero every channel
type WSResetMessage struct {
	Type     string `json:"type"`
	Session  string `json:"session"`
	Sequence int64  `json:"sequence"`
}

// WebSocket streams blendshape updates to a rendering front-end
type WebSocket struct {
	cfg     Config
	logger  zerolog.Logger
	session string

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	sequence  int64
	cancel    context.CancelFunc
}

// NewWebSocket creates a websocket sink. Call Connect before use; updates
// sent while disconnected are dropped with an error.
func NewWebSocket(cfg Config, logger zerolog.Logger) *WebSocket {
	return &WebSocket{
		cfg:     cfg,
		logger:  logger.With().Str("component", "ws-sink").Logger(),
		session: uuid.NewString(),
	}
}

// Connect establishes the connection and keeps it alive with reconnection
func (w *WebSocket) Connect(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	if err := w.dial(ctx); err != nil {
		go w.reconnectLoop(ctx)
		return err
	}
	go w.reconnectLoop(ctx)
	return nil
}

// Disconnect closes the connection
func (w *WebSocket) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Lock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	w.connected = false
	w.mu.Unlock()
}

// IsConnected returns connection status
func (w *WebSocket) IsConnected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

// SetBlendshape sends one weight update
func (w *WebSocket) SetBlendshape(idx blendshape.Index, intensity float64, hint time.Duration) error {
	w.mu.Lock()
	if !w.connected || w.conn == nil {
		w.mu.Unlock()
		return fmt.Errorf("not connected")
	}
	conn := w.conn
	w.sequence++
	seq := w.sequence
	w.mu.Unlock()

	msg := WSBlendshapeMessage{
		Type:      "blendshape",
		Session:   w.session,
		Sequence:  seq,
		Index:     int(idx),
		Name:      idx.String(),
		Intensity: intensity,
		HintMs:    hint.Milliseconds(),
		Timestamp: time.Now().Format(time.RFC3339Nano),
	}

	conn.SetWriteDeadline(time.Now().Add(w.cfg.WriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		w.markDisconnected()
		return fmt.Errorf("write blendshape: %w", err)
	}
	return nil
}

// ResetAll sends a reset message
func (w *WebSocket) ResetAll() error {
	w.mu.Lock()
	if !w.connected || w.conn == nil {
		w.mu.Unlock()
		return fmt.Errorf("not connected")
	}
	conn := w.conn
	w.sequence++
	seq := w.sequence
	w.mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(w.cfg.WriteTimeout))
	if err := conn.WriteJSON(WSResetMessage{Type: "reset", Session: w.session, Sequence: seq}); err != nil {
		w.markDisconnected()
		return fmt.Errorf("write reset: %w", err)
	}
	return nil
}

func (w *WebSocket) markDisconnected() {
	w.mu.Lock()
	w.connected = false
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	w.mu.Unlock()
}

// reconnectLoop maintains the connection with exponential backoff
func (w *WebSocket) reconnectLoop(ctx context.Context) {
	backoff := 3 * time.Second
	maxBackoff := 60 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		if w.IsConnected() {
			backoff = 3 * time.Second
			continue
		}

		if err := w.dial(ctx); err != nil {
			w.logger.Debug().Err(err).Msg("Sink reconnect failed")
			if backoff < maxBackoff {
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
			continue
		}
		backoff = 3 * time.Second
	}
}

// dial establishes the WebSocket connection
func (w *WebSocket) dial(ctx context.Context) error {
	u, err := url.Parse(w.cfg.URL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else if u.Scheme == "http" {
		u.Scheme = "ws"
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()

	w.logger.Info().Str("url", u.String()).Str("session", w.session).Msg("Sink connected")
	return nil
}
