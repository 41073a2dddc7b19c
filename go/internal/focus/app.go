package focus

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// App is the stateless dispatch layer between the transport and the registry.
// Each handler runs to completion, mutates the registry through one of its
// atomic operations, and emits the resulting broadcasts. Domain errors go
// back to the originating connection only and never escape the handler.
type App struct {
	registry  *Registry
	scheduler *Scheduler
	broadcast Broadcaster
}

// NewApp wires the handler layer to its collaborators.
func NewApp(registry *Registry, scheduler *Scheduler, broadcast Broadcaster) *App {
	return &App{
		registry:  registry,
		scheduler: scheduler,
		broadcast: broadcast,
	}
}

// CreateSessionRequest is the create_session payload.
type CreateSessionRequest struct {
	DisplayName string `json:"display_name"`
	DurationMS  int64  `json:"duration_ms"`
}

// JoinSessionRequest is the join_session payload.
type JoinSessionRequest struct {
	RoomCode    string `json:"room_code"`
	DisplayName string `json:"display_name"`
}

// UpdateStatusRequest is the update_status payload.
type UpdateStatusRequest struct {
	Status ParticipantStatus `json:"status"`
}

// Connect records a new connection. No session state changes until the
// client creates or joins a room.
func (a *App) Connect(connID string) {
	log.Info().Str("connection_id", connID).Msg("client connected")
}

// Disconnect removes the connection's participant from its session, if any,
// and notifies the remaining members.
func (a *App) Disconnect(connID string) {
	result, err := a.registry.Leave(connID)
	if err != nil {
		// Connection never joined a session.
		log.Debug().Str("connection_id", connID).Msg("client disconnected")
		return
	}

	log.Info().
		Str("connection_id", connID).
		Str("room_code", result.RoomCode).
		Bool("session_removed", result.SessionRemoved).
		Msg("client left session")

	if result.SessionRemoved {
		return
	}

	a.broadcast.BroadcastRoom(result.RoomCode, NewEvent(EventParticipantLeft, ParticipantLeftPayload{
		ParticipantID: result.ParticipantID,
		Session:       result.Session,
	}))

	if result.NewCreatorID != "" {
		a.broadcast.BroadcastRoom(result.RoomCode, NewEvent(EventCreatorChanged, CreatorChangedPayload{
			NewCreatorID: result.NewCreatorID,
		}))
	}
}

// CreateSession allocates a new session with the caller as creator and
// answers with session_created on the caller's connection.
func (a *App) CreateSession(connID string, req CreateSessionRequest) {
	displayName := req.DisplayName
	if displayName == "" {
		displayName = defaultDisplayName(connID)
	}

	session := a.registry.Create(connID, displayName, time.Duration(req.DurationMS)*time.Millisecond)
	a.broadcast.JoinRoom(connID, session.RoomCode)

	a.broadcast.SendTo(connID, NewEvent(EventSessionCreated, SessionCreatedPayload{
		Success:   true,
		SessionID: session.ID,
		RoomCode:  session.RoomCode,
		Session:   session,
	}))

	log.Info().
		Str("room_code", session.RoomCode).
		Str("display_name", displayName).
		Msg("session created")
}

// JoinSession adds the caller to the room, announces the new participant to
// the room and answers the caller with session_joined. Failures come back as
// join_error with the specific reason.
func (a *App) JoinSession(connID string, req JoinSessionRequest) {
	displayName := req.DisplayName
	if displayName == "" {
		displayName = defaultDisplayName(connID)
	}

	session, participant, err := a.registry.Join(req.RoomCode, connID, displayName)
	if err != nil {
		a.broadcast.SendTo(connID, NewEvent(EventJoinError, JoinErrorPayload{Error: err.Error()}))
		return
	}
	a.broadcast.JoinRoom(connID, session.RoomCode)

	a.broadcast.BroadcastRoom(session.RoomCode, NewEvent(EventParticipantJoined, ParticipantJoinedPayload{
		Participant: participant,
		Session:     roomView(session),
	}))

	a.broadcast.SendTo(connID, NewEvent(EventSessionJoined, SessionJoinedPayload{
		Success:   true,
		SessionID: session.ID,
		RoomCode:  session.RoomCode,
		Session:   session,
	}))

	log.Info().
		Str("room_code", session.RoomCode).
		Str("display_name", displayName).
		Msg("participant joined session")
}

// StartSession begins the countdown for the caller's session. Only the
// creator of a waiting session may start it; anything else comes back as an
// error event on the caller's connection.
func (a *App) StartSession(connID string) {
	sessionID, err := a.registry.SessionFor(connID)
	if err != nil {
		a.broadcast.SendTo(connID, NewEvent(EventError, ErrorPayload{Message: ErrNoActiveSession.Error()}))
		return
	}

	session, err := a.registry.Start(sessionID, connID, a.scheduler.Run)
	if err != nil {
		a.broadcast.SendTo(connID, NewEvent(EventError, ErrorPayload{Message: err.Error()}))
		return
	}

	a.broadcast.BroadcastRoom(session.RoomCode, NewEvent(EventSessionStarted, SessionStartedPayload{
		Session: session,
	}))

	log.Info().Str("room_code", session.RoomCode).Msg("session started")
}

// UpdateStatus records the caller's self-reported status and tells everyone
// else in the room. Unknown connections and unknown statuses are dropped
// silently, per the transport contract.
func (a *App) UpdateStatus(connID string, req UpdateStatusRequest) {
	if !req.Status.Valid() {
		log.Warn().
			Str("connection_id", connID).
			Str("status", string(req.Status)).
			Msg("ignoring unknown participant status")
		return
	}

	session, participant, err := a.registry.UpdateStatus(connID, req.Status)
	if err != nil {
		if !errors.Is(err, ErrNoActiveSession) {
			log.Error().Err(err).Str("connection_id", connID).Msg("status update failed")
		}
		return
	}

	a.broadcast.BroadcastRoomExcept(session.RoomCode, connID, NewEvent(EventParticipantStatusUpdated, ParticipantStatusUpdatedPayload{
		ParticipantID: connID,
		Status:        participant.Status,
		DisplayName:   participant.DisplayName,
	}))

	log.Debug().
		Str("display_name", participant.DisplayName).
		Str("status", string(participant.Status)).
		Msg("participant status updated")
}

// defaultDisplayName mirrors the client fallback name for anonymous users.
func defaultDisplayName(connID string) string {
	if len(connID) > 6 {
		connID = connID[:6]
	}
	return fmt.Sprintf("User%s", connID)
}

// roomView strips the caller-relative creator flag for room-wide broadcasts.
func roomView(s SessionSnapshot) SessionSnapshot {
	s.IsCreator = false
	return s
}
