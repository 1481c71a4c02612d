package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"backend/internal/repository"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Heartbeat interval for version updates. Clients only re-fetch their
	// notification feed when the version changes, at most once per
	// heartbeat, so a burst of approvals never turns into a request storm.
	versionHeartbeatInterval = 2 * time.Second
)

// Client represents a WebSocket client connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains the set of active clients and pushes notification-feed
// version updates to them. It polls the Redis version counter instead of
// subscribing, which keeps the hub stateless across restarts.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Redis repository holding the notifications version counter
	redisRepo *repository.RedisRepository

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Last known version for change detection
	lastVersion int64
}

// VersionUpdate represents the version heartbeat message
type VersionUpdate struct {
	Type    string `json:"type"`
	Version int64  `json:"version"`
}

// NewHub creates a new WebSocket hub
func NewHub(redisRepo *repository.RedisRepository) *Hub {
	return &Hub{
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		clients:     make(map[*Client]bool),
		redisRepo:   redisRepo,
		lastVersion: 0,
	}
}

// Run starts the WebSocket hub
func (h *Hub) Run(ctx context.Context) {
	log.Println("WebSocket hub started")

	versionTicker := time.NewTicker(versionHeartbeatInterval)
	defer versionTicker.Stop()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("WebSocket client connected (total: %d)", h.GetClientCount())

			h.sendInitialVersion(client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("WebSocket client disconnected (total: %d)", h.GetClientCount())

		case <-versionTicker.C:
			h.checkAndBroadcastVersion(ctx)

		case <-ctx.Done():
			log.Println("WebSocket hub shutting down")
			return
		}
	}
}

// checkAndBroadcastVersion broadcasts the notifications version to all
// clients when it changed since the last heartbeat
func (h *Hub) checkAndBroadcastVersion(ctx context.Context) {
	currentVersion, err := h.redisRepo.GetVersion(ctx)
	if err != nil {
		log.Printf("Failed to get notifications version: %v", err)
		return
	}

	if currentVersion == h.lastVersion {
		return
	}
	h.lastVersion = currentVersion

	message, err := json.Marshal(VersionUpdate{
		Type:    "VERSION_UPDATE",
		Version: currentVersion,
	})
	if err != nil {
		log.Printf("Failed to marshal version update: %v", err)
		return
	}

	h.mu.RLock()
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Client's send buffer is full, skip this client
		}
	}
	h.mu.RUnlock()
}

// sendInitialVersion sends the current version to a newly connected client
func (h *Hub) sendInitialVersion(client *Client) {
	currentVersion, err := h.redisRepo.GetVersion(context.Background())
	if err != nil {
		log.Printf("Failed to get initial version: %v", err)
		return
	}

	if h.lastVersion == 0 {
		h.lastVersion = currentVersion
	}

	message, err := json.Marshal(VersionUpdate{
		Type:    "VERSION_UPDATE",
		Version: currentVersion,
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	_, exists := h.clients[client]
	h.mu.RUnlock()
	if !exists {
		return
	}

	// Send with a timeout to avoid blocking the hub loop on a slow client
	select {
	case client.send <- message:
	case <-time.After(2 * time.Second):
		log.Println("Timeout sending initial version")
	}
}

// GetClientCount returns the current number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket unexpected close: %v", err)
			}
			break
		}
		// Clients are not expected to send anything; ignore what arrives
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
	}()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))

		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)

		// Drain queued messages into the same websocket frame
		n := len(c.send)
		for i := 0; i < n; i++ {
			w.Write([]byte{'\n'})
			w.Write(<-c.send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ServeWS handles WebSocket requests from clients
func ServeWS(hub *Hub, conn *websocket.Conn) {
	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	client.hub.register <- client

	go client.writePump()
	client.readPump()
}
