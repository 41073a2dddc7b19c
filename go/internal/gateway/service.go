package gateway

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Service bundles the WebSocket gateway: the connection manager, the upgrade
// handler and the REST reads.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
}

// NewService creates the gateway around the focus app and registry views.
// The connection manager is built separately because the focus app uses it as
// its Broadcaster.
func NewService(connectionManager *ConnectionManager, app SessionApp, stateProvider StateProvider, clock clockwork.Clock) *Service {
	wsHandler := NewWebSocketHandler(connectionManager, app)
	stateHandler := NewStateHandler(stateProvider, connectionManager, clock)

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         wsHandler,
		stateHandler:      stateHandler,
	}
}

// Start runs the broadcast fanout loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting focus gateway service")
	s.connectionManager.Start(ctx)
	log.Info().Msg("focus gateway service stopped")
}

// RegisterRoutes registers the WebSocket and REST routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("focus gateway routes registered")
}
