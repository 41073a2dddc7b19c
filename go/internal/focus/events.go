package focus

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// EventType identifies an outbound event on the transport.
type EventType string

const (
	EventSessionCreated           EventType = "session_created"
	EventSessionJoined            EventType = "session_joined"
	EventJoinError                EventType = "join_error"
	EventError                    EventType = "error"
	EventParticipantJoined        EventType = "participant_joined"
	EventParticipantLeft          EventType = "participant_left"
	EventCreatorChanged           EventType = "creator_changed"
	EventSessionStarted           EventType = "session_started"
	EventTimeUpdate               EventType = "time_update"
	EventSessionCompleted         EventType = "session_completed"
	EventParticipantStatusUpdated EventType = "participant_status_updated"
)

// Event is the outbound envelope delivered to clients.
type Event struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewEvent wraps a payload in an Event envelope. Payloads are plain structs
// defined below; a marshal failure is a programming error and yields an
// envelope with empty data rather than a dropped event.
func NewEvent(t EventType, payload any) *Event {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(t)).Msg("failed to marshal event payload")
		data = []byte("{}")
	}
	return &Event{Type: t, Data: data}
}

// Broadcaster is the transport boundary: room membership plus addressed
// unicast and room-scoped delivery. Delivery is best effort.
type Broadcaster interface {
	// JoinRoom adds a connection to a room so it receives room broadcasts.
	JoinRoom(connID, roomCode string)

	// SendTo delivers an event to a single connection.
	SendTo(connID string, event *Event)

	// BroadcastRoom delivers an event to every connection in a room.
	BroadcastRoom(roomCode string, event *Event)

	// BroadcastRoomExcept delivers to every connection in a room except one.
	BroadcastRoomExcept(roomCode, exceptID string, event *Event)
}

// Outbound payloads.

type SessionCreatedPayload struct {
	Success   bool            `json:"success"`
	SessionID string          `json:"session_id"`
	RoomCode  string          `json:"room_code"`
	Session   SessionSnapshot `json:"session"`
}

type SessionJoinedPayload struct {
	Success   bool            `json:"success"`
	SessionID string          `json:"session_id"`
	RoomCode  string          `json:"room_code"`
	Session   SessionSnapshot `json:"session"`
}

type JoinErrorPayload struct {
	Error string `json:"error"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type ParticipantJoinedPayload struct {
	Participant Participant     `json:"participant"`
	Session     SessionSnapshot `json:"session"`
}

type ParticipantLeftPayload struct {
	ParticipantID string          `json:"participant_id"`
	Session       SessionSnapshot `json:"session"`
}

type CreatorChangedPayload struct {
	NewCreatorID string `json:"new_creator_id"`
}

type SessionStartedPayload struct {
	Session SessionSnapshot `json:"session"`
}

type TimeUpdatePayload struct {
	TimeLeftMS int64 `json:"time_left_ms"`
	ElapsedMS  int64 `json:"elapsed_ms"`
}

type SessionCompletedPayload struct {
	Session SessionSnapshot `json:"session"`
}

type ParticipantStatusUpdatedPayload struct {
	ParticipantID string            `json:"participant_id"`
	Status        ParticipantStatus `json:"status"`
	DisplayName   string            `json:"display_name"`
}
