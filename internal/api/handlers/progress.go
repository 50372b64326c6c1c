package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pratik-mahalle/gw2ledger/internal/pkg/logger"
	"github.com/pratik-mahalle/gw2ledger/internal/progress"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ProgressHandler streams fetch progress over a websocket
type ProgressHandler struct {
	hub      *progress.Hub
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewProgressHandler creates a progress handler. allowedOrigins empty accepts any origin.
func NewProgressHandler(hub *progress.Hub, allowedOrigins []string, log *logger.Logger) *ProgressHandler {
	h := &ProgressHandler{hub: hub, logger: log}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 {
				return true
			}
			for _, o := range allowedOrigins {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Stream upgrades the connection and forwards hub messages until either side closes.
// The latest progress of every running job is sent first.
// GET /api/v1/sync/progress
func (h *ProgressHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Progress websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	for _, p := range h.hub.Latest() {
		msg := progress.Message{Type: progress.EventProgress, Data: p, Timestamp: time.Now()}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}

	// the read side only handles pongs and close frames
	closed := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.WithError(err).Debug("Progress websocket write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
