package realtime

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxClientFrame = 512
)

// DefaultPingInterval is how often the server pings an idle push channel.
const DefaultPingInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The board is public; any page may open the feed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades the request to a WebSocket and streams change events
// until the client goes away or the hub closes.
func (h *Hub) Handler(pingInterval time.Duration) http.Handler {
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}
	pongWait := 2 * pingInterval

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the HTTP error.
			slog.Warn("upgrading change feed", "ip", r.RemoteAddr, "err", err)
			return
		}
		defer func() {
			if cerr := conn.Close(); cerr != nil {
				slog.Debug("closing change feed", "err", cerr)
			}
		}()

		sub := h.subscribe()
		if sub == nil {
			writeClose(conn, websocket.CloseGoingAway, "server shutting down")
			return
		}
		defer h.unsubscribe(sub)

		slog.Debug("change feed connected", "ip", r.RemoteAddr)

		// Clients never send data; reading keeps pong and close handling alive.
		done := make(chan struct{})
		conn.SetReadLimit(maxClientFrame)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				slog.Debug("change feed disconnected", "ip", r.RemoteAddr)
				return
			case msg, ok := <-sub.ch:
				if !ok {
					writeClose(conn, websocket.CloseGoingAway, "feed closed")
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					slog.Info("writing change event", "ip", r.RemoteAddr, "err", err)
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					slog.Info("pinging change feed", "ip", r.RemoteAddr, "err", err)
					return
				}
			}
		}
	})
}

func writeClose(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		slog.Debug("writing close frame", "err", err)
	}
}
