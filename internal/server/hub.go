package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBuffer     = 64
)

// Message types sent over the websocket besides the engine notification types.
const (
	MessageState  = "STATE"
	MessageError  = "ERROR"
	MessageAction = "ACTION"
)

// WSMessage is the envelope of every websocket frame.
type WSMessage struct {
	Type    string      `json:"type"`
	MatchID string      `json:"matchId,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type outbound struct {
	matchID string
	payload []byte
}

// Hub fans match notifications out to the websocket clients watching a match.
// The client set is owned by Run; ClientCount reads it under mu.
type Hub struct {
	logger     *zap.Logger
	clients    map[string]map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	closeMatch chan string
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a hub. Call Run before publishing.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		closeMatch: make(chan string, 16),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for matchID, set := range h.clients {
				for client := range set {
					close(client.send)
				}
				delete(h.clients, matchID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			set := h.clients[client.matchID]
			if set == nil {
				set = make(map[*Client]bool)
				h.clients[client.matchID] = set
			}
			set[client] = true
			h.mu.Unlock()
			h.logger.Debug("websocket client registered",
				zap.String("match_id", client.matchID),
				zap.String("player_id", client.playerID),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case matchID := <-h.closeMatch:
			h.mu.Lock()
			for client := range h.clients[matchID] {
				h.drop(client)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[message.matchID] {
				select {
				case client.send <- message.payload:
				default:
					h.logger.Warn("dropping slow websocket client",
						zap.String("match_id", client.matchID),
						zap.String("player_id", client.playerID),
					)
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes a client and closes its send channel. Callers hold mu.
func (h *Hub) drop(client *Client) {
	set, ok := h.clients[client.matchID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.matchID)
	}
}

// Publish forwards an engine notification to the clients of its match. It is
// safe to use as the engine's notification handler.
func (h *Hub) Publish(notification game.Notification) {
	payload, err := json.Marshal(WSMessage{
		Type:    notification.Type,
		MatchID: notification.MatchID,
		Data:    notification.Snapshot,
	})
	if err != nil {
		h.logger.Error("failed to encode notification",
			zap.String("match_id", notification.MatchID),
			zap.Error(err),
		)
		return
	}
	select {
	case h.broadcast <- outbound{matchID: notification.MatchID, payload: payload}:
	case <-h.done:
	}
}

// CloseMatch disconnects every client of a match.
func (h *Hub) CloseMatch(matchID string) {
	select {
	case h.closeMatch <- matchID:
	case <-h.done:
	}
}

// ClientCount returns the number of clients watching a match.
func (h *Hub) ClientCount(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[matchID])
}

// Client is one websocket connection bound to a match. A client without a
// player id is a spectator and cannot send actions.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	matchID  string
	playerID string
}

func newClient(hub *Hub, conn *websocket.Conn, matchID, playerID string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		matchID:  matchID,
		playerID: playerID,
	}
}

// enqueue sends a frame to this client only. Frames are dropped when the
// buffer is full or the client is already gone.
func (c *Client) enqueue(message WSMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c.matchID][c] {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// readPump reads action frames and hands them to handle until the connection
// closes.
func (c *Client) readPump(handle func(*Client, []byte)) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read failed",
					zap.String("match_id", c.matchID),
					zap.Error(err),
				)
			}
			return
		}
		handle(c, message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
