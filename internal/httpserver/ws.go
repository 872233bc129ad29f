package httpserver

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// wsMessage is the envelope pushed to websocket clients.
type wsMessage struct {
	Kind  string         `json:"kind"` // event | log | avatar
	Event string         `json:"event,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The UI is served from a different origin during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// hub fans messages out to connected websocket clients. A slow client's
// full send buffer drops the message rather than stalling the rest.
type hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
	logger  zerolog.Logger
}

type wsClient struct {
	conn *websocket.Conn
	send chan wsMessage
}

func newHub(logger zerolog.Logger) *hub {
	return &hub{
		clients: make(map[*wsClient]struct{}),
		logger:  logger.With().Str("component", "ws-hub").Logger(),
	}
}

func (h *hub) add(client *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[client] = struct{}{}
	return true
}

func (h *hub) remove(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *hub) broadcast(msg wsMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for client := range h.clients {
		close(client.send)
		_ = client.conn.Close()
	}
	h.clients = make(map[*wsClient]struct{})
}

// handleWebsocket upgrades the connection and streams bus events, log
// entries, and avatar state changes until the client disconnects.
func (s *Server) handleWebsocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &wsClient{conn: conn, send: make(chan wsMessage, 64)}
	if !s.hub.add(client) {
		_ = conn.Close()
		return nil
	}
	s.logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("websocket client connected")

	// Writer: drains the send channel onto the socket.
	go func() {
		for msg := range client.send {
			if err := conn.WriteJSON(msg); err != nil {
				break
			}
		}
		_ = conn.Close()
	}()

	// Reader: we accept no inbound messages, but reading surfaces the
	// disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.remove(client)
	s.logger.Debug().Msg("websocket client disconnected")
	return nil
}
