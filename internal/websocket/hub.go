package websocket

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Event types pushed to connected clients so other devices know to re-pull.
const (
	EventNoteChanged   = "note-changed"
	EventNoteDeleted   = "note-deleted"
	EventNotesReloaded = "notes-reloaded"
)

type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Hub fans note change events out to all connected clients. Clients are
// receive-only; there is no inbound message protocol.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	logger     *zap.Logger

	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
}

func NewHub(writeWait, pongWait, pingPeriod time.Duration, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		logger:     logger,
		writeWait:  writeWait,
		pongWait:   pongWait,
		pingPeriod: pingPeriod,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("websocket client registered", zap.String("remote", client.remoteAddr))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Debug("websocket client unregistered", zap.String("remote", client.remoteAddr))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer, drop the connection.
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Broadcast sends an event to every connected client. Never blocks the
// caller beyond the buffered channel.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		h.logger.Warn("failed to encode websocket event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("websocket broadcast buffer full, dropping event", zap.String("type", eventType))
	}
}
