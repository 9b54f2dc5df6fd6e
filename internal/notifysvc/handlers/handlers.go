package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/avvvet/valentine-services/internal/comm"
	"github.com/avvvet/valentine-services/internal/notifysvc/ws"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	upgrader websocket.Upgrader
	ws       *ws.Ws
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

type watchRequest struct {
	Slug string `json:"slug"`
}

func NewHandler(s *ws.Ws) *Handler {
	h := &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ws: s,
	}
	return h
}

// HandleWebSocket upgrades the sender's check page. The card to watch comes
// from the slug query parameter or a later "watch" message.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	client := h.ws.StoreConnection(socketId, conn)

	log.Infof("New WebSocket connection established: %s", socketId)

	if slug := r.URL.Query().Get("slug"); slug != "" {
		h.watch(client, socketId, slug)
	}

	go h.handleConnection(conn, client, socketId)
}

func (h *Handler) handleConnection(conn *websocket.Conn, client *ws.Client, socketId string) {
	// Ensure cleanup happens when connection closes
	defer func() {
		log.Infof("Closing WebSocket connection: %s", socketId)
		h.ws.HandleDisconnect(socketId)
		client.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", socketId, err)
			}
			break
		}

		message := &comm.WSMessage{}
		if err := json.Unmarshal(raw, message); err != nil {
			log.Errorf("Failed to unmarshal message from socket %s: %v", socketId, err)
			h.sendErrorToClient(client, "Invalid message format")
			continue // Don't break, just skip this message
		}

		switch message.Type {
		case "watch":
			var req watchRequest
			if err := json.Unmarshal(message.Data, &req); err != nil || req.Slug == "" {
				h.sendErrorToClient(client, "watch needs a card slug")
				continue
			}
			h.watch(client, socketId, req.Slug)
		default:
			log.Warnf("unknown event received: %s", message.Type)
		}
	}
}

func (h *Handler) watch(client *ws.Client, socketId, slug string) {
	h.ws.Watch(socketId, slug)

	data, _ := json.Marshal(watchRequest{Slug: slug})
	err := client.WriteJSON(&comm.WSMessage{
		Type:     comm.EventSubscribed,
		Data:     data,
		SocketId: socketId,
	})
	if err != nil {
		log.Errorf("Failed to confirm watch for socket %s: %v", socketId, err)
	}
}

// sendErrorToClient sends an error message back to the WebSocket client
func (h *Handler) sendErrorToClient(client *ws.Client, errorMsg string) {
	errorResponse := map[string]interface{}{
		"type":  comm.EventError,
		"error": errorMsg,
	}

	if err := client.WriteJSON(errorResponse); err != nil {
		log.Errorf("Failed to send error message to client: %v", err)
	}
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "notify service is running",
		Code:    http.StatusOK,
	})
}
