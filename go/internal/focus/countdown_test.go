package focus_test

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/fidan-app/focus-server/go/internal/focus"
)

// startCountdownSession creates a session with the given duration, joins a
// second participant and starts the scheduler's countdown for it.
func startCountdownSession(t *testing.T, cfg focus.Config, clock clockwork.Clock, duration time.Duration) (*focus.Registry, *fakeBroadcaster, focus.SessionSnapshot) {
	t.Helper()

	reg := focus.NewRegistry(cfg, clock)
	fb := &fakeBroadcaster{}
	sched := focus.NewScheduler(reg, fb, clock, cfg)

	created := reg.Create("conn-1", "ada", duration)
	_, _, err := reg.Join(created.RoomCode, "conn-2", "grace")
	require.NoError(t, err)

	started, err := reg.Start(created.ID, "conn-1", sched.Run)
	require.NoError(t, err)
	return reg, fb, started
}

func TestCountdownTicksAndCompletes(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cfg := focus.DefaultConfig()
	cfg.TickInterval = time.Second
	cfg.GracePeriod = 5 * time.Minute

	reg, fb, session := startCountdownSession(t, cfg, clock, 2*time.Second)

	// First tick: one second left.
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return fb.countOf(focus.EventTimeUpdate) == 1 }, time.Second, time.Millisecond)

	updates := fb.ofType(focus.EventTimeUpdate)
	var tick focus.TimeUpdatePayload
	decode(t, updates[0], &tick)
	require.Equal(t, session.RoomCode, updates[0].Target)
	require.Equal(t, int64(1000), tick.TimeLeftMS)
	require.Equal(t, int64(1000), tick.ElapsedMS)

	// Second tick reaches zero: final time_update plus exactly one
	// session_completed.
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return fb.countOf(focus.EventSessionCompleted) == 1 }, time.Second, time.Millisecond)

	updates = fb.ofType(focus.EventTimeUpdate)
	require.Len(t, updates, 2)
	decode(t, updates[1], &tick)
	require.Equal(t, int64(0), tick.TimeLeftMS)

	completed := fb.ofType(focus.EventSessionCompleted)
	var payload focus.SessionCompletedPayload
	decode(t, completed[0], &payload)
	require.Equal(t, focus.SessionCompleted, payload.Session.Status)
	for _, p := range payload.Session.Participants {
		require.Equal(t, focus.ParticipantCompleted, p.Status)
	}

	// During the grace window the session is still queryable.
	preview, err := reg.Lookup(session.RoomCode)
	require.NoError(t, err)
	require.Equal(t, focus.SessionCompleted, preview.Status)
	require.Equal(t, int64(0), preview.TimeLeftMS)

	// After the grace period the session is gone. The loop's ticker is
	// still armed during the grace wait, so wait for both sleepers before
	// advancing.
	clock.BlockUntil(2)
	clock.Advance(cfg.GracePeriod)
	require.Eventually(t, func() bool { return reg.Count() == 0 }, time.Second, time.Millisecond)

	_, err = reg.Lookup(session.RoomCode)
	require.ErrorIs(t, err, focus.ErrNotFound)

	// No further ticking after completion.
	require.Equal(t, 2, fb.countOf(focus.EventTimeUpdate))
	require.Equal(t, 1, fb.countOf(focus.EventSessionCompleted))
}

func TestCountdownTimeLeftMonotonic(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cfg := focus.DefaultConfig()
	cfg.TickInterval = time.Second

	_, fb, _ := startCountdownSession(t, cfg, clock, 4*time.Second)

	for i := 0; i < 4; i++ {
		clock.BlockUntil(1)
		clock.Advance(time.Second)
		want := i + 1
		require.Eventually(t, func() bool { return fb.countOf(focus.EventTimeUpdate) == want }, time.Second, time.Millisecond)
	}

	updates := fb.ofType(focus.EventTimeUpdate)
	last := int64(1 << 62)
	for _, u := range updates {
		var tick focus.TimeUpdatePayload
		decode(t, u, &tick)
		require.LessOrEqual(t, tick.TimeLeftMS, last)
		last = tick.TimeLeftMS
	}
	require.Equal(t, int64(0), last)
}

func TestCountdownCancelledWhenSessionRemoved(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cfg := focus.DefaultConfig()
	cfg.TickInterval = time.Second

	reg, fb, _ := startCountdownSession(t, cfg, clock, time.Minute)

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return fb.countOf(focus.EventTimeUpdate) == 1 }, time.Second, time.Millisecond)

	// Last participant leaves: session and countdown go away together.
	_, err := reg.Leave("conn-2")
	require.NoError(t, err)
	result, err := reg.Leave("conn-1")
	require.NoError(t, err)
	require.True(t, result.SessionRemoved)

	// Advancing further produces no more ticks and no completion.
	clock.Advance(2 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, fb.countOf(focus.EventTimeUpdate))
	require.Equal(t, 0, fb.countOf(focus.EventSessionCompleted))
}

func TestCountdownCancelledDuringGracePeriod(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cfg := focus.DefaultConfig()
	cfg.TickInterval = time.Second
	cfg.GracePeriod = 5 * time.Minute

	reg, fb, _ := startCountdownSession(t, cfg, clock, time.Second)

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return fb.countOf(focus.EventSessionCompleted) == 1 }, time.Second, time.Millisecond)

	// Both participants disconnect inside the grace window.
	_, err := reg.Leave("conn-2")
	require.NoError(t, err)
	result, err := reg.Leave("conn-1")
	require.NoError(t, err)
	require.True(t, result.SessionRemoved)
	require.Equal(t, 0, reg.Count())
}
