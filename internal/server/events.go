package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/khutwa-dev/khutwa/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// sessionEvent tells a tab that the session changed and it should
// re-evaluate its current route
type sessionEvent struct {
	Type          string      `json:"type"`
	Reason        string      `json:"reason"`
	Authenticated bool        `json:"authenticated"`
	Role          models.Role `json:"role,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
}

type eventClient struct {
	send chan []byte
}

// eventHub fans session events out to every connected tab
type eventHub struct {
	mu      sync.RWMutex
	clients map[*eventClient]struct{}
	logger  zerolog.Logger
}

func newEventHub(logger zerolog.Logger) *eventHub {
	return &eventHub{
		clients: make(map[*eventClient]struct{}),
		logger:  logger.With().Str("component", "events").Logger(),
	}
}

func (h *eventHub) register() *eventClient {
	client := &eventClient{send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	return client
}

func (h *eventHub) unregister(client *eventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *eventHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *eventHub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *eventHub) broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		h.sendLocked(client, data)
	}
}

// deliver sends to one client if it is still registered
func (h *eventHub) deliver(client *eventClient, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[client]; ok {
		h.sendLocked(client, data)
	}
}

func (h *eventHub) sendLocked(client *eventClient, data []byte) {
	select {
	case client.send <- data:
	default:
		// a tab that stopped reading misses the event; the next one
		// carries the full state anyway
		h.logger.Warn().Msg("Event buffer full, dropping session event")
	}
}

func (s *Server) currentEvent(reason string) sessionEvent {
	snap := s.sessions.Snapshot()
	return sessionEvent{
		Type:          "session",
		Reason:        reason,
		Authenticated: snap.HasToken(),
		Role:          snap.Role(),
		Timestamp:     time.Now().UTC(),
	}
}

// broadcastSession pushes the current session state to every tab
func (s *Server) broadcastSession(reason string) {
	data, err := json.Marshal(s.currentEvent(reason))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to marshal session event")
		return
	}
	s.hub.broadcast(data)
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(s.config.Web.CORSOrigins, origin) {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		},
	}
}

// events upgrades the request to a WebSocket that receives one message per
// session change, starting with the current state
func (s *Server) events(c *gin.Context) {
	conn, err := s.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to upgrade event connection")
		return
	}

	client := s.hub.register()
	if data, err := json.Marshal(s.currentEvent("connected")); err == nil {
		s.hub.deliver(client, data)
	}

	go s.writePump(conn, client)
	s.readPump(conn, client)
}

// readPump only watches for the tab going away
func (s *Server) readPump(conn *websocket.Conn, client *eventClient) {
	defer func() {
		s.hub.unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Msg("Event connection closed")
			}
			return
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, client *eventClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Debug().Err(err).Msg("Event write failed")
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
