package focus_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fidan-app/focus-server/go/internal/focus"
)

// recordedEvent is one delivery captured by the fake broadcaster.
type recordedEvent struct {
	Kind   string // "send", "room", "room_except", "join_room"
	Target string // connection id or room code
	Except string
	Event  *focus.Event
}

// fakeBroadcaster records deliveries instead of writing to sockets.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeBroadcaster) JoinRoom(connID, roomCode string) {
	f.record(recordedEvent{Kind: "join_room", Target: roomCode, Except: connID})
}

func (f *fakeBroadcaster) SendTo(connID string, event *focus.Event) {
	f.record(recordedEvent{Kind: "send", Target: connID, Event: event})
}

func (f *fakeBroadcaster) BroadcastRoom(roomCode string, event *focus.Event) {
	f.record(recordedEvent{Kind: "room", Target: roomCode, Event: event})
}

func (f *fakeBroadcaster) BroadcastRoomExcept(roomCode, exceptID string, event *focus.Event) {
	f.record(recordedEvent{Kind: "room_except", Target: roomCode, Except: exceptID, Event: event})
}

func (f *fakeBroadcaster) record(e recordedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

// ofType returns every recorded delivery carrying an event of the given type.
func (f *fakeBroadcaster) ofType(t focus.EventType) []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedEvent
	for _, e := range f.events {
		if e.Event != nil && e.Event.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeBroadcaster) countOf(t focus.EventType) int {
	return len(f.ofType(t))
}

// kindOf returns every recorded delivery of the given kind.
func (f *fakeBroadcaster) kindOf(kind string) []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedEvent
	for _, e := range f.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// decode unmarshals a recorded event's payload into out.
func decode(t *testing.T, e recordedEvent, out any) {
	t.Helper()
	require.NotNil(t, e.Event)
	require.NoError(t, json.Unmarshal(e.Event.Data, out))
}
