package live

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Streamer upgrades HTTP requests to websockets and streams snapshots.
type Streamer struct {
	upgrader websocket.Upgrader
	logger   *logrus.Logger
}

// NewStreamer creates a Streamer accepting the given origins. An empty list
// or "*" accepts every origin.
func NewStreamer(origins []string, logger *logrus.Logger) *Streamer {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Streamer{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
			},
		},
	}
}

// Stream sends initial and then every snapshot of sub until the client goes
// away or the subscription is closed. It owns sub and closes it on return.
func (s *Streamer) Stream(w http.ResponseWriter, r *http.Request, sub *Subscription, initial Snapshot) {
	defer sub.Close()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := s.logger.WithField("topic", sub.Topic())
	log.Debug("live subscriber connected")

	// The read side only exists to notice the client closing the socket.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := writeJSON(conn, initial); err != nil {
		log.WithError(err).Debug("failed to write initial snapshot")
		return
	}

	for {
		select {
		case <-gone:
			log.Debug("live subscriber disconnected")
			return
		case <-r.Context().Done():
			return
		case snap, ok := <-sub.C():
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			if err := writeJSON(conn, snap); err != nil {
				log.WithError(err).Debug("failed to write snapshot")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}
