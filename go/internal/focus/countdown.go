package focus

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Scheduler runs one countdown loop per active session. Loops are fully
// independent: one session completing or failing never delays another's
// ticks. The registry owns each loop's cancellation handle and cancels it
// whenever the session is removed for any reason other than the loop's own
// grace-period expiry.
type Scheduler struct {
	registry  *Registry
	broadcast Broadcaster
	clock     clockwork.Clock
	cfg       Config
}

// NewScheduler creates a countdown scheduler.
func NewScheduler(registry *Registry, broadcast Broadcaster, clock clockwork.Clock, cfg Config) *Scheduler {
	return &Scheduler{
		registry:  registry,
		broadcast: broadcast,
		clock:     clock,
		cfg:       cfg,
	}
}

// Run drives one session through ticking, completion and the post-completion
// grace hold. It is launched by Registry.Start and exits when the session
// completes its grace period, disappears from the registry, or ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context, sessionID string) {
	ticker := s.clock.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("session_id", sessionID).Msg("countdown cancelled")
			return
		case <-ticker.Chan():
			tick, ok := s.registry.Tick(sessionID)
			if !ok {
				// Session gone or no longer active; nothing left to do.
				return
			}

			s.broadcast.BroadcastRoom(tick.RoomCode, NewEvent(EventTimeUpdate, TimeUpdatePayload{
				TimeLeftMS: tick.TimeLeftMS,
				ElapsedMS:  tick.ElapsedMS,
			}))

			if tick.Completed {
				s.complete(ctx, sessionID, tick)
				return
			}
		}
	}
}

// complete broadcasts the final snapshot, holds the session through the grace
// window so late queries still resolve, then removes it.
func (s *Scheduler) complete(ctx context.Context, sessionID string, tick TickResult) {
	s.broadcast.BroadcastRoom(tick.RoomCode, NewEvent(EventSessionCompleted, SessionCompletedPayload{
		Session: tick.Session,
	}))

	log.Info().
		Str("session_id", sessionID).
		Str("room_code", tick.RoomCode).
		Msg("session completed")

	select {
	case <-ctx.Done():
		// Removed during the grace window (last participant left or the
		// reaper evicted it); the registry already cleaned up.
		return
	case <-s.clock.After(s.cfg.GracePeriod):
	}

	if s.registry.Remove(sessionID) {
		log.Info().
			Str("session_id", sessionID).
			Str("room_code", tick.RoomCode).
			Msg("session cleaned up after completion")
	}
}
