package focus

import "time"

// Config holds the session policy knobs. The defaults match the reference
// deployment; all of them are plain policy, none are protocol guarantees.
type Config struct {
	// DefaultDuration is used when create_session omits duration_ms.
	DefaultDuration time.Duration

	// MaxParticipants bounds every session's member list.
	MaxParticipants int

	// TickInterval is how often an active session recomputes and
	// broadcasts its remaining time.
	TickInterval time.Duration

	// GracePeriod is how long a completed session stays queryable before
	// it is removed from the registry.
	GracePeriod time.Duration

	// InactivityMaxAge is the reaper's eviction threshold.
	InactivityMaxAge time.Duration

	// SweepInterval is how often the reaper runs.
	SweepInterval time.Duration
}

// DefaultConfig returns the reference policy values.
func DefaultConfig() Config {
	return Config{
		DefaultDuration:  25 * time.Minute,
		MaxParticipants:  4,
		TickInterval:     time.Second,
		GracePeriod:      5 * time.Minute,
		InactivityMaxAge: 2 * time.Hour,
		SweepInterval:    30 * time.Minute,
	}
}
