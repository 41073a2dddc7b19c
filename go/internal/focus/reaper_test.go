package focus_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/fidan-app/focus-server/go/internal/focus"
)

func TestReaperEvictsStaleSessions(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cfg := testConfig()
	cfg.SweepInterval = 10 * time.Minute
	cfg.InactivityMaxAge = 30 * time.Minute
	reg := focus.NewRegistry(cfg, clock)
	reaper := focus.NewReaper(reg, clock, cfg)

	stale := reg.Create("conn-1", "ada", time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reaper.Run(ctx)

	// First sweep, nothing stale yet.
	clock.BlockUntil(1)
	clock.Advance(cfg.SweepInterval)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, reg.Count())

	// Push the session past the inactivity threshold; a fresh one created
	// after the jump must survive the sweep.
	clock.Advance(time.Hour)
	fresh := reg.Create("conn-2", "grace", time.Minute)

	clock.Advance(cfg.SweepInterval)
	require.Eventually(t, func() bool { return reg.Count() == 1 }, time.Second, time.Millisecond)

	_, err := reg.Lookup(stale.RoomCode)
	require.ErrorIs(t, err, focus.ErrNotFound)
	_, err = reg.Lookup(fresh.RoomCode)
	require.NoError(t, err)
}

func TestReaperEvictsRegardlessOfStatus(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cfg := testConfig()
	cfg.SweepInterval = 10 * time.Minute
	cfg.InactivityMaxAge = 30 * time.Minute
	reg := focus.NewRegistry(cfg, clock)

	// An active session whose countdown stopped updating still gets
	// evicted once it goes quiet for long enough.
	created := reg.Create("conn-1", "ada", time.Minute)
	run, ctxCh := captureRun()
	_, err := reg.Start(created.ID, "conn-1", run)
	require.NoError(t, err)
	countdownCtx := <-ctxCh

	clock.Advance(time.Hour)
	removed := reg.SweepInactive(cfg.InactivityMaxAge)
	require.Len(t, removed, 1)
	require.Equal(t, focus.SessionActive, removed[0].Status)

	select {
	case <-countdownCtx.Done():
	default:
		t.Fatal("countdown not cancelled by sweep")
	}
}
