package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fidan-app/focus-server/go/internal/focus"
)

// SessionApp is what the gateway needs from the focus event handlers.
type SessionApp interface {
	Connect(connID string)
	Disconnect(connID string)
	CreateSession(connID string, req focus.CreateSessionRequest)
	JoinSession(connID string, req focus.JoinSessionRequest)
	StartSession(connID string)
	UpdateStatus(connID string, req focus.UpdateStatusRequest)
}

// Inbound event names on the wire.
const (
	msgCreateSession = "create_session"
	msgJoinSession   = "join_session"
	msgStartSession  = "start_session"
	msgUpdateStatus  = "update_status"
)

// clientMessage is the inbound envelope sent by clients.
type clientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// WebSocketHandler handles WebSocket upgrade requests and dispatches inbound
// client messages to the focus app.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	app               SessionApp
}

// NewWebSocketHandler creates a WebSocket handler and binds the connection
// manager's callbacks to the app.
func NewWebSocketHandler(cm *ConnectionManager, app SessionApp) *WebSocketHandler {
	h := &WebSocketHandler{
		connectionManager: cm,
		app:               app,
	}
	cm.Bind(h.dispatch, app.Disconnect)
	return h
}

// HandleFocusConnection upgrades the request and registers the connection.
func (h *WebSocketHandler) HandleFocusConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.connectionManager.UpgradeConnection(w, r)
	if err != nil {
		// The upgrader has already written its error response.
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	h.app.Connect(conn.ID)
}

// dispatch routes one inbound client message to the matching app handler.
// Malformed or unknown messages are logged and dropped; nothing a client
// sends can take the handler loop down.
func (h *WebSocketHandler) dispatch(connID string, message []byte) {
	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", connID).
			Msg("dropping malformed client message")
		return
	}

	switch msg.Type {
	case msgCreateSession:
		var req focus.CreateSessionRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			log.Warn().Err(err).Str("connection_id", connID).Msg("bad create_session payload")
			return
		}
		h.app.CreateSession(connID, req)

	case msgJoinSession:
		var req focus.JoinSessionRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			log.Warn().Err(err).Str("connection_id", connID).Msg("bad join_session payload")
			return
		}
		h.app.JoinSession(connID, req)

	case msgStartSession:
		h.app.StartSession(connID)

	case msgUpdateStatus:
		var req focus.UpdateStatusRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			log.Warn().Err(err).Str("connection_id", connID).Msg("bad update_status payload")
			return
		}
		h.app.UpdateStatus(connID, req)

	default:
		log.Debug().
			Str("connection_id", connID).
			Str("type", msg.Type).
			Msg("ignoring unknown client message type")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleFocusConnection)
}
