package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/fidan-app/focus-server/go/internal/focus"
)

// StateProvider is the read-only query surface the HTTP layer needs from the
// session registry.
type StateProvider interface {
	Lookup(roomCode string) (focus.RoomPreview, error)
	Count() int
}

// StateHandler serves the REST reads: liveness, room preview and connection
// stats.
type StateHandler struct {
	stateProvider StateProvider
	connections   *ConnectionManager
	clock         clockwork.Clock
}

// NewStateHandler creates a new state handler.
func NewStateHandler(provider StateProvider, cm *ConnectionManager, clock clockwork.Clock) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
		connections:   cm,
		clock:         clock,
	}
}

// healthResponse is the GET /health body.
type healthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
	Timestamp      string `json:"timestamp"`
}

// HandleHealth handles GET /health.
func (h *StateHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "healthy",
		ActiveSessions: h.stateProvider.Count(),
		Timestamp:      h.clock.Now().Format(time.RFC3339),
	})
}

// HandleGetSession handles GET /session/{roomCode}, the pre-join room
// preview.
func (h *StateHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	roomCode := strings.ToUpper(r.PathValue("roomCode"))
	if roomCode == "" {
		http.Error(w, "room code is required", http.StatusBadRequest)
		return
	}

	preview, err := h.stateProvider.Lookup(roomCode)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Session not found"})
		return
	}

	writeJSON(w, http.StatusOK, preview)
}

// HandleConnectionStats handles GET /ws/stats.
func (h *StateHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	total, rooms := h.connections.GetConnectionStats()
	writeJSON(w, http.StatusOK, map[string]int{
		"total_connections": total,
		"active_rooms":      rooms,
	})
}

// RegisterStateRoutes registers the REST routes.
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /session/{roomCode}", h.HandleGetSession)
	mux.HandleFunc("GET /ws/stats", h.HandleConnectionStats)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
