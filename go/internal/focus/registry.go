package focus

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// CountdownFunc runs the countdown loop for one started session. The context
// is cancelled when the session is removed from the registry.
type CountdownFunc func(ctx context.Context, sessionID string)

// sessionEntry pairs a session with its countdown task handle. The handle is
// nil until the session starts.
type sessionEntry struct {
	session *Session
	cancel  context.CancelFunc
}

// Registry is the single source of truth for live sessions and for the
// mapping from a connection to the session it occupies. Every exported method
// is one atomic unit under the registry mutex; callers only ever receive
// snapshots, never live *Session pointers.
type Registry struct {
	cfg   Config
	clock clockwork.Clock

	mu         sync.Mutex
	sessions   map[string]*sessionEntry // session id -> entry
	byRoomCode map[string]*sessionEntry // room code -> entry
	byConn     map[string]*sessionEntry // connection id -> entry
}

// NewRegistry creates an empty session registry.
func NewRegistry(cfg Config, clock clockwork.Clock) *Registry {
	return &Registry{
		cfg:        cfg,
		clock:      clock,
		sessions:   make(map[string]*sessionEntry),
		byRoomCode: make(map[string]*sessionEntry),
		byConn:     make(map[string]*sessionEntry),
	}
}

func (r *Registry) nowMS() int64 {
	return r.clock.Now().UnixMilli()
}

// Create allocates a new waiting session with the caller as sole participant
// and creator. A zero or negative duration falls back to the configured
// default. Create always succeeds.
func (r *Registry) Create(connID, displayName string, duration time.Duration) SessionSnapshot {
	if duration <= 0 {
		duration = r.cfg.DefaultDuration
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	code := newRoomCode()
	for {
		if _, taken := r.byRoomCode[code]; !taken {
			break
		}
		code = newRoomCode()
	}

	now := r.nowMS()
	session := &Session{
		ID:        uuid.New().String(),
		RoomCode:  code,
		CreatorID: connID,
		Participants: []*Participant{{
			ID:          connID,
			DisplayName: displayName,
			Status:      ParticipantReady,
			JoinedAt:    now,
		}},
		MaxParticipants: r.cfg.MaxParticipants,
		Status:          SessionWaiting,
		DurationMS:      duration.Milliseconds(),
		TimeLeftMS:      duration.Milliseconds(),
		CreatedAt:       now,
		LastActivityAt:  now,
	}

	entry := &sessionEntry{session: session}
	r.sessions[session.ID] = entry
	r.byRoomCode[code] = entry
	r.byConn[connID] = entry

	return session.snapshot(connID)
}

// Join adds a participant to the session holding roomCode. It fails with
// ErrNotFound, ErrFull or ErrAlreadyStarted without mutating anything.
func (r *Registry) Join(roomCode, connID, displayName string) (SessionSnapshot, Participant, error) {
	roomCode = strings.ToUpper(roomCode)

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byRoomCode[roomCode]
	if !ok {
		return SessionSnapshot{}, Participant{}, ErrNotFound
	}
	session := entry.session
	if len(session.Participants) >= session.MaxParticipants {
		return SessionSnapshot{}, Participant{}, ErrFull
	}
	if session.Status != SessionWaiting {
		return SessionSnapshot{}, Participant{}, ErrAlreadyStarted
	}

	now := r.nowMS()
	participant := &Participant{
		ID:          connID,
		DisplayName: displayName,
		Status:      ParticipantReady,
		JoinedAt:    now,
	}
	session.Participants = append(session.Participants, participant)
	session.LastActivityAt = now
	r.byConn[connID] = entry

	return session.snapshot(connID), *participant, nil
}

// SessionFor resolves the session a connection currently occupies.
func (r *Registry) SessionFor(connID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byConn[connID]
	if !ok {
		return "", ErrNoActiveSession
	}
	return entry.session.ID, nil
}

// Start transitions a waiting session to active, flips every participant to
// focusing and launches run as the session's countdown task. The task handle
// is stored on the entry under the same lock, so a session can never hold two
// countdown tasks.
func (r *Registry) Start(sessionID, requesterID string, run CountdownFunc) (SessionSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[sessionID]
	if !ok {
		return SessionSnapshot{}, ErrNotFound
	}
	session := entry.session
	if session.CreatorID != requesterID {
		return SessionSnapshot{}, ErrNotCreator
	}
	if session.Status != SessionWaiting {
		return SessionSnapshot{}, ErrInvalidState
	}

	now := r.nowMS()
	session.Status = SessionActive
	session.StartedAt = now
	session.LastActivityAt = now
	session.TimeLeftMS = session.DurationMS
	for _, p := range session.Participants {
		p.Status = ParticipantFocusing
	}

	ctx, cancel := context.WithCancel(context.Background())
	entry.cancel = cancel
	go run(ctx, sessionID)

	return session.snapshot(""), nil
}

// UpdateStatus records a participant's self-reported status and bumps the
// session's activity clock. Unknown connections or invalid statuses are
// reported as errors for the caller to drop silently.
func (r *Registry) UpdateStatus(connID string, status ParticipantStatus) (SessionSnapshot, Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byConn[connID]
	if !ok {
		return SessionSnapshot{}, Participant{}, ErrNoActiveSession
	}
	session := entry.session
	participant := session.participant(connID)
	if participant == nil {
		return SessionSnapshot{}, Participant{}, ErrNoActiveSession
	}

	participant.Status = status
	session.LastActivityAt = r.nowMS()

	return session.snapshot(""), *participant, nil
}

// LeaveResult describes the effect of a participant leaving so the caller can
// broadcast appropriately.
type LeaveResult struct {
	SessionRemoved bool
	ParticipantID  string
	RoomCode       string
	NewCreatorID   string          // set when the creator role was reassigned
	Session        SessionSnapshot // valid when the session survived
}

// Leave removes the participant bound to connID from its session. Emptying
// the session removes it and cancels its countdown atomically; otherwise the
// creator role is reassigned to the oldest remaining participant if needed.
func (r *Registry) Leave(connID string) (LeaveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byConn[connID]
	if !ok {
		return LeaveResult{}, ErrNoActiveSession
	}
	delete(r.byConn, connID)

	session := entry.session
	session.removeParticipant(connID)
	session.LastActivityAt = r.nowMS()

	result := LeaveResult{
		ParticipantID: connID,
		RoomCode:      session.RoomCode,
	}

	if len(session.Participants) == 0 {
		r.removeLocked(entry)
		result.SessionRemoved = true
		return result, nil
	}

	if session.CreatorID == connID {
		session.CreatorID = session.Participants[0].ID
		result.NewCreatorID = session.CreatorID
	}
	result.Session = session.snapshot("")
	return result, nil
}

// TickResult carries one countdown step's broadcast data.
type TickResult struct {
	RoomCode   string
	TimeLeftMS int64
	ElapsedMS  int64
	Completed  bool
	Session    SessionSnapshot // final snapshot, set when Completed
}

// Tick recomputes remaining time for an active session from wall clock and
// start time. When the countdown hits zero it performs the completion
// transition in the same atomic step: focusing participants become completed
// and the session status becomes completed, exactly once. The second return
// is false when the session is gone or no longer active, which tells the
// countdown loop to exit.
func (r *Registry) Tick(sessionID string) (TickResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[sessionID]
	if !ok {
		return TickResult{}, false
	}
	session := entry.session
	if session.Status != SessionActive {
		return TickResult{}, false
	}

	now := r.nowMS()
	elapsed := now - session.StartedAt
	session.TimeLeftMS = max(0, session.DurationMS-elapsed)
	session.LastActivityAt = now

	result := TickResult{
		RoomCode:   session.RoomCode,
		TimeLeftMS: session.TimeLeftMS,
		ElapsedMS:  elapsed,
	}

	if session.TimeLeftMS <= 0 {
		session.Status = SessionCompleted
		for _, p := range session.Participants {
			if p.Status == ParticipantFocusing {
				p.Status = ParticipantCompleted
			}
		}
		result.Completed = true
		result.Session = session.snapshot("")
	}

	return result, true
}

// Remove deletes a session by id, if it still exists. Used by the countdown
// task after the completion grace period elapses.
func (r *Registry) Remove(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	r.removeLocked(entry)
	return true
}

// SweepInactive removes every session whose last activity is older than
// maxAge and returns their final snapshots. Countdown tasks of removed
// sessions are cancelled before the call returns.
func (r *Registry) SweepInactive(maxAge time.Duration) []SessionSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.nowMS() - maxAge.Milliseconds()
	var removed []SessionSnapshot
	for _, entry := range r.sessions {
		if entry.session.LastActivityAt < cutoff {
			removed = append(removed, entry.session.snapshot(""))
			r.removeLocked(entry)
		}
	}
	return removed
}

// Lookup returns the read-only preview of a room for clients inspecting it
// before joining.
func (r *Registry) Lookup(roomCode string) (RoomPreview, error) {
	roomCode = strings.ToUpper(roomCode)

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byRoomCode[roomCode]
	if !ok {
		return RoomPreview{}, ErrNotFound
	}
	session := entry.session
	return RoomPreview{
		RoomCode:        session.RoomCode,
		Participants:    len(session.Participants),
		MaxParticipants: session.MaxParticipants,
		Status:          session.Status,
		TimeLeftMS:      session.TimeLeftMS,
		CreatedAt:       session.CreatedAt,
	}, nil
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// removeLocked drops an entry from every map and cancels its countdown task.
// Callers must hold the registry mutex.
func (r *Registry) removeLocked(entry *sessionEntry) {
	if entry.cancel != nil {
		entry.cancel()
		entry.cancel = nil
	}
	session := entry.session
	delete(r.sessions, session.ID)
	delete(r.byRoomCode, session.RoomCode)
	for _, p := range session.Participants {
		if r.byConn[p.ID] == entry {
			delete(r.byConn, p.ID)
		}
	}

	log.Debug().
		Str("session_id", session.ID).
		Str("room_code", session.RoomCode).
		Msg("session removed from registry")
}
