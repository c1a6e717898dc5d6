package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	log "github.com/echocat/slf4g"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ayusman/gesturesynth/internal/gesture"
)

const (
	// clientBuffer is how many snapshots may queue for one visualizer before
	// it is considered too slow and dropped.
	clientBuffer = 16
	writeTimeout = time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub broadcasts snapshots to connected visualizers via WebSocket.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
}

// NewHub creates a Hub with no clients.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends s to every client without blocking. Clients whose buffer
// is full are disconnected.
func (h *Hub) Broadcast(s gesture.Snapshot) {
	msg, err := json.Marshal(s)
	if err != nil {
		log.WithError(err).Warn("Cannot encode snapshot.")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.With("client", id).Info("Dropping slow visualizer.")
			delete(h.clients, id)
			c.close()
		}
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		c.close()
	}
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
		c.close()
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("WebSocket upgrade failed.")
		return
	}
	defer conn.Close()

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, clientBuffer)}
	if !h.add(c) {
		return
	}
	defer h.remove(c)
	log.With("client", c.id).Debug("Visualizer connected.")

	go c.writeLoop()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.With("client", c.id).Debug("Visualizer disconnected.")
			return
		}
	}
}

// writeLoop drains send. When send is closed it closes the connection,
// which also ends the read loop.
func (c *client) writeLoop() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(writeTimeout))
}
