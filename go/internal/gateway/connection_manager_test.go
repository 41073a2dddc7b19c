package gateway

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fidan-app/focus-server/go/internal/focus"
)

func registerConn(cm *ConnectionManager, id string) *Connection {
	conn := &Connection{
		ID:      id,
		Send:    make(chan []byte, 4),
		Manager: cm,
	}
	cm.mu.Lock()
	cm.conns[conn.ID] = conn
	cm.mu.Unlock()
	return conn
}

// A disconnect racing an in-flight room broadcast must never take the fanout
// loop down: the broadcast snapshots its targets before the drop, so the send
// buffer has to stay writable after the connection is unregistered.
func TestBroadcastRacingDisconnect(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	event := focus.NewEvent(focus.EventTimeUpdate, focus.TimeUpdatePayload{TimeLeftMS: 1000})

	for i := 0; i < 2000; i++ {
		conn := registerConn(cm, fmt.Sprintf("conn-%d", i))
		cm.JoinRoom(conn.ID, "RACE42")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			cm.handleBroadcast(BroadcastMessage{RoomCode: "RACE42", Event: event})
		}()
		go func() {
			defer wg.Done()
			cm.dropConnection(conn)
		}()
		wg.Wait()
	}

	total, rooms := cm.GetConnectionStats()
	require.Zero(t, total)
	require.Zero(t, rooms)
}

func TestUnicastAfterDisconnectIsDropped(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	conn := registerConn(cm, "conn-1")
	cm.JoinRoom(conn.ID, "AB12CD")

	cm.dropConnection(conn)
	cm.handleBroadcast(BroadcastMessage{ConnID: "conn-1", Event: focus.NewEvent(focus.EventError, focus.ErrorPayload{Message: "late"})})

	require.Empty(t, conn.Send, "unregistered connections receive nothing")
}

func TestDropConnectionFiresDisconnectOnce(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	var drops []string
	cm.Bind(func(string, []byte) {}, func(connID string) { drops = append(drops, connID) })

	conn := registerConn(cm, "conn-1")
	cm.dropConnection(conn)
	cm.dropConnection(conn)

	require.Equal(t, []string{"conn-1"}, drops)
}
