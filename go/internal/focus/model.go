package focus

// ParticipantStatus is the closed set of states a participant can report.
type ParticipantStatus string

const (
	ParticipantReady     ParticipantStatus = "ready"
	ParticipantFocusing  ParticipantStatus = "focusing"
	ParticipantPaused    ParticipantStatus = "paused"
	ParticipantCompleted ParticipantStatus = "completed"
	ParticipantFailed    ParticipantStatus = "failed"
)

// Valid reports whether s is one of the known participant statuses.
func (s ParticipantStatus) Valid() bool {
	switch s {
	case ParticipantReady, ParticipantFocusing, ParticipantPaused, ParticipantCompleted, ParticipantFailed:
		return true
	}
	return false
}

// SessionStatus is the lifecycle state of a session. Transitions are
// forward-only: waiting -> active -> completed.
type SessionStatus string

const (
	SessionWaiting   SessionStatus = "waiting"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// Participant is one connected member of a session. Participants are owned by
// their session and only ever mutated under the registry lock.
type Participant struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"display_name"`
	Status      ParticipantStatus `json:"status"`
	JoinedAt    int64             `json:"joined_at"` // ms since epoch
}

// Session is one timed multi-party focus period. All fields are guarded by
// the registry lock; handlers and the countdown loop only ever see snapshots.
type Session struct {
	ID              string
	RoomCode        string
	CreatorID       string
	Participants    []*Participant
	MaxParticipants int
	Status          SessionStatus
	DurationMS      int64
	TimeLeftMS      int64
	StartedAt       int64 // ms since epoch, 0 until started
	CreatedAt       int64
	LastActivityAt  int64
}

// participant returns the member with the given connection id, or nil.
func (s *Session) participant(id string) *Participant {
	for _, p := range s.Participants {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// removeParticipant drops the member with the given id, preserving join order.
func (s *Session) removeParticipant(id string) bool {
	for i, p := range s.Participants {
		if p.ID == id {
			s.Participants = append(s.Participants[:i], s.Participants[i+1:]...)
			return true
		}
	}
	return false
}

// SessionSnapshot is the wire representation of a session, safe to hand to
// broadcast goroutines after the registry lock is released.
type SessionSnapshot struct {
	ID              string        `json:"id"`
	RoomCode        string        `json:"room_code"`
	Participants    []Participant `json:"participants"`
	MaxParticipants int           `json:"max_participants"`
	Status          SessionStatus `json:"status"`
	DurationMS      int64         `json:"duration_ms"`
	TimeLeftMS      int64         `json:"time_left_ms"`
	StartedAt       int64         `json:"started_at,omitempty"`
	CreatedAt       int64         `json:"created_at"`
	IsCreator       bool          `json:"is_creator"`
}

// snapshot copies the session for broadcasting. viewerID marks the snapshot
// creator-relative; pass "" for room-wide broadcasts.
func (s *Session) snapshot(viewerID string) SessionSnapshot {
	participants := make([]Participant, len(s.Participants))
	for i, p := range s.Participants {
		participants[i] = *p
	}
	return SessionSnapshot{
		ID:              s.ID,
		RoomCode:        s.RoomCode,
		Participants:    participants,
		MaxParticipants: s.MaxParticipants,
		Status:          s.Status,
		DurationMS:      s.DurationMS,
		TimeLeftMS:      s.TimeLeftMS,
		StartedAt:       s.StartedAt,
		CreatedAt:       s.CreatedAt,
		IsCreator:       viewerID != "" && s.CreatorID == viewerID,
	}
}

// RoomPreview is the read-only view served to clients inspecting a room
// before joining it.
type RoomPreview struct {
	RoomCode        string        `json:"room_code"`
	Participants    int           `json:"participants"`
	MaxParticipants int           `json:"max_participants"`
	Status          SessionStatus `json:"status"`
	TimeLeftMS      int64         `json:"time_left_ms"`
	CreatedAt       int64         `json:"created_at"`
}
