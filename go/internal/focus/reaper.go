package focus

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Reaper periodically evicts sessions with no recent activity. It is the
// backstop against sessions leaked by sockets that closed without a clean
// disconnect, independent of any session's own countdown.
type Reaper struct {
	registry *Registry
	clock    clockwork.Clock
	cfg      Config
}

// NewReaper creates a reaper bound to the registry.
func NewReaper(registry *Registry, clock clockwork.Clock, cfg Config) *Reaper {
	return &Reaper{registry: registry, clock: clock, cfg: cfg}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	log.Info().
		Dur("sweep_interval", r.cfg.SweepInterval).
		Dur("inactivity_max_age", r.cfg.InactivityMaxAge).
		Msg("session reaper started")

	ticker := r.clock.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session reaper shutting down")
			return
		case <-ticker.Chan():
			r.sweep()
		}
	}
}

func (r *Reaper) sweep() {
	removed := r.registry.SweepInactive(r.cfg.InactivityMaxAge)
	for _, session := range removed {
		log.Info().
			Str("session_id", session.ID).
			Str("room_code", session.RoomCode).
			Str("status", string(session.Status)).
			Msg("cleaned up stale session")
	}
	if len(removed) > 0 {
		log.Info().Int("removed", len(removed)).Msg("stale session sweep finished")
	}
}
