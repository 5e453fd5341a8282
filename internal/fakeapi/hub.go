package fakeapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Iron-Ham/gentle/internal/logging"
	"github.com/Iron-Ham/gentle/internal/realtime"
)

const writeWait = 5 * time.Second

// Hub fans celebration frames out to every socket a user has open.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logging.Logger

	mu    sync.Mutex
	conns map[string]map[*hubConn]struct{}
}

type hubConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *hubConn) write(frame realtime.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(frame)
}

// NewHub creates an empty hub.
func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		logger:   logger,
		conns:    make(map[string]map[*hubConn]struct{}),
	}
}

// Serve upgrades the request and keeps the socket registered for userID
// until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("realtime upgrade failed", "error", err.Error())
		return
	}
	c := &hubConn{conn: conn}
	h.add(userID, c)
	defer func() {
		h.remove(userID, c)
		_ = conn.Close()
	}()

	// Clients only read; the read loop notices when they leave.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) add(userID string, c *hubConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*hubConn]struct{})
	}
	h.conns[userID][c] = struct{}{}
	h.logger.Debug("realtime client connected", "user_id", userID, "connections", len(h.conns[userID]))
}

func (h *Hub) remove(userID string, c *hubConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[userID], c)
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}

// Connections returns how many sockets userID has open.
func (h *Hub) Connections(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[userID])
}

// Celebrate sends a celebration to every socket of userID and returns how
// many received it.
func (h *Hub) Celebrate(userID, message string) int {
	h.mu.Lock()
	targets := make([]*hubConn, 0, len(h.conns[userID]))
	for c := range h.conns[userID] {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	frame := realtime.NewCelebrationFrame(message)
	sent := 0
	for _, c := range targets {
		if err := c.write(frame); err != nil {
			h.logger.Warn("realtime send failed", "user_id", userID, "error", err.Error())
			_ = c.conn.Close()
			continue
		}
		sent++
	}
	return sent
}

// CloseAll drops every socket, which makes clients reconnect.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	var all []*hubConn
	for _, set := range h.conns {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.Unlock()
	for _, c := range all {
		_ = c.conn.Close()
	}
}
