package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"p2pquotes/internal/controller"
)

// Hub fans view-state snapshots out to connected popups. Slow readers
// only ever miss intermediate snapshots, never the latest one.
type Hub struct {
	logger zerolog.Logger

	mu     sync.Mutex
	conns  map[*wsClient]bool
	closed bool
}

type wsClient struct {
	send chan controller.ViewState
}

// NewHub creates an empty hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger: logger,
		conns:  make(map[*wsClient]bool),
	}
}

// Broadcast delivers a snapshot to every connected client
func (h *Hub) Broadcast(v controller.ViewState) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.conns {
		select {
		case client.send <- v:
		default:
			// Channel full: drop the oldest snapshot so the newest
			// always gets through.
			select {
			case <-client.send:
			default:
			}
			select {
			case client.send <- v:
			default:
			}
		}
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for client := range h.conns {
		close(client.send)
	}
	h.conns = make(map[*wsClient]bool)
}

func (h *Hub) register(client *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.conns[client] = true
	return true
}

func (h *Hub) unregister(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[client] {
		delete(h.conns, client)
		close(client.send)
	}
}

// handleWS upgrades the connection and streams view snapshots: the
// current state on connect, then one message per controller commit.
func (s *Server) handleWS() gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			s.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
			return
		}

		client := &wsClient{send: make(chan controller.ViewState, 8)}
		if !s.hub.register(client) {
			conn.Close()
			return
		}

		// current state first, so a reconnecting popup renders
		// immediately
		if err := conn.WriteJSON(s.quotes.View()); err != nil {
			s.hub.unregister(client)
			conn.Close()
			return
		}

		go func() {
			defer conn.Close()
			for snapshot := range client.send {
				if err := conn.WriteJSON(snapshot); err != nil {
					return
				}
			}
		}()

		go func() {
			defer s.hub.unregister(client)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}
