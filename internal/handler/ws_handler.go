package handler

import (
	"net/http"

	"notes-share-server/internal/domain"
	"notes-share-server/internal/websocket"

	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	hub      *websocket.Hub
	upgrader ws.Upgrader
	logger   *zap.Logger
}

func NewWebSocketHandler(hub *websocket.Hub, readBufferSize, writeBufferSize int, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
		upgrader: ws.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := websocket.NewClient(conn, h.hub)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// HubNotifier bridges note mutations onto the websocket hub.
type HubNotifier struct {
	hub *websocket.Hub
}

func NewHubNotifier(hub *websocket.Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NoteChanged(note *domain.Note) {
	n.hub.Broadcast(websocket.EventNoteChanged, note)
}

func (n *HubNotifier) NoteDeleted(id string) {
	n.hub.Broadcast(websocket.EventNoteDeleted, map[string]string{"id": id})
}

func (n *HubNotifier) NotesReloaded() {
	n.hub.Broadcast(websocket.EventNotesReloaded, nil)
}
