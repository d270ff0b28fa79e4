package ws

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-relay/domain"
	"chat-relay/runtime"
)

// Dispatcher is where decoded commands go; satisfied by the coordinator.
type Dispatcher interface {
	Dispatch(cmd domain.Command)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades HTTP requests and binds each connection to the relay:
// the client becomes an event sink in the registry, its frames become
// commands for the dispatcher.
type Handler struct {
	log        *slog.Logger
	registry   *runtime.Registry
	dispatcher Dispatcher
	config     Config
}

func NewHandler(log *slog.Logger, registry *runtime.Registry, dispatcher Dispatcher, config Config) *Handler {
	return &Handler{log: log, registry: registry, dispatcher: dispatcher, config: config}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.handleWebSocket)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := NewClient(uuid.New().String(), conn, h.log, h.config)
	h.registry.Attach(client.ID, client)
	h.log.Debug("Connection opened", "conn_id", client.ID)

	go client.WritePump()
	go client.ReadPump(h.handleFrame, h.handleClose)
}

func (h *Handler) handleFrame(client *Client, data []byte) {
	cmd, err := DecodeCommand(client.ID, data)
	if err != nil {
		// Malformed input never gets an answer, only a trace.
		h.log.Debug("Dropping malformed frame", "conn_id", client.ID, "error", err)
		return
	}
	h.dispatcher.Dispatch(cmd)
}

func (h *Handler) handleClose(client *Client) {
	h.log.Debug("Connection closed", "conn_id", client.ID)
	h.dispatcher.Dispatch(domain.DisconnectCommand{Conn: client.ID})
}
