package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/fidan-app/focus-server/go/internal/focus"
)

// ConnectionManager manages WebSocket connections and their room membership.
// It implements focus.Broadcaster: outbound events are queued on a buffered
// channel and fanned out by the Start loop, so handlers never block on slow
// sockets.
type ConnectionManager struct {
	// Live connections by connection id, and room pools by room code.
	conns map[string]*Connection
	rooms map[string]map[*Connection]bool
	mu    sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan BroadcastMessage

	// Set once at wiring time, before any connection is accepted.
	onMessage    func(connID string, message []byte)
	onDisconnect func(connID string)
}

// Connection represents a WebSocket connection to a client. A connection
// belongs to at most one room at a time.
type Connection struct {
	ID      string
	Room    string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds configuration for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage represents a queued outbound event. ConnID addresses a
// single connection; otherwise RoomCode addresses a room, optionally skipping
// ExceptID.
type BroadcastMessage struct {
	RoomCode string
	ConnID   string
	ExceptID string
	Event    *focus.Event
}

// DefaultConnectionConfig returns default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		conns: make(map[string]*Connection),
		rooms: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Bind installs the inbound message and disconnect callbacks. Must be called
// before the first upgrade.
func (cm *ConnectionManager) Bind(onMessage func(connID string, message []byte), onDisconnect func(connID string)) {
	cm.onMessage = onMessage
	cm.onDisconnect = onDisconnect
}

// Start begins processing queued broadcasts until ctx is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a WebSocket connection and
// starts its read/write pumps.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.mu.Lock()
	cm.conns[connection.ID] = connection
	cm.mu.Unlock()

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")

	return connection, nil
}

// JoinRoom adds a connection to a room pool. A connection can only be in one
// room; joining again replaces the previous membership.
func (cm *ConnectionManager) JoinRoom(connID, roomCode string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	conn, ok := cm.conns[connID]
	if !ok {
		return
	}
	if conn.Room != "" {
		cm.leaveRoomLocked(conn)
	}

	if cm.rooms[roomCode] == nil {
		cm.rooms[roomCode] = make(map[*Connection]bool)
	}
	cm.rooms[roomCode][conn] = true
	conn.Room = roomCode

	log.Debug().
		Str("connection_id", connID).
		Str("room_code", roomCode).
		Int("room_connections", len(cm.rooms[roomCode])).
		Msg("connection joined room")
}

// SendTo queues an event for a single connection.
func (cm *ConnectionManager) SendTo(connID string, event *focus.Event) {
	cm.enqueue(BroadcastMessage{ConnID: connID, Event: event})
}

// BroadcastRoom queues an event for every connection in a room.
func (cm *ConnectionManager) BroadcastRoom(roomCode string, event *focus.Event) {
	cm.enqueue(BroadcastMessage{RoomCode: roomCode, Event: event})
}

// BroadcastRoomExcept queues an event for a room, skipping one connection.
func (cm *ConnectionManager) BroadcastRoomExcept(roomCode, exceptID string, event *focus.Event) {
	cm.enqueue(BroadcastMessage{RoomCode: roomCode, ExceptID: exceptID, Event: event})
}

func (cm *ConnectionManager) enqueue(message BroadcastMessage) {
	select {
	case cm.broadcastCh <- message:
	default:
		log.Warn().
			Str("event_type", string(message.Event.Type)).
			Str("room_code", message.RoomCode).
			Msg("broadcast channel full, dropping message")
	}
}

// handleBroadcast resolves a queued message to target connections and writes
// to their send buffers. Slow consumers are dropped.
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	var targets []*Connection
	if message.ConnID != "" {
		if conn, ok := cm.conns[message.ConnID]; ok {
			targets = append(targets, conn)
		}
	} else {
		for conn := range cm.rooms[message.RoomCode] {
			if message.ExceptID != "" && conn.ID == message.ExceptID {
				continue
			}
			targets = append(targets, conn)
		}
	}
	cm.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- data:
		default:
			log.Warn().
				Str("connection_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("room_code", message.RoomCode).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// GetConnectionStats returns statistics about active connections.
func (cm *ConnectionManager) GetConnectionStats() (total int, rooms int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.conns), len(cm.rooms)
}

// dropConnection unregisters a connection and fires the disconnect callback
// exactly once, no matter how many pumps call it. Send is never closed: the
// fanout loop may hold a snapshot of this connection and still be writing to
// it, so the channel is left for the GC and writePump exits on its own once
// the socket is gone.
func (cm *ConnectionManager) dropConnection(conn *Connection) {
	cm.mu.Lock()
	_, registered := cm.conns[conn.ID]
	if registered {
		delete(cm.conns, conn.ID)
		cm.leaveRoomLocked(conn)
	}
	cm.mu.Unlock()

	if !registered {
		return
	}

	log.Info().
		Str("connection_id", conn.ID).
		Msg("connection unregistered")

	if cm.onDisconnect != nil {
		cm.onDisconnect(conn.ID)
	}
}

// leaveRoomLocked removes the connection from its room pool. Callers must
// hold the manager lock.
func (cm *ConnectionManager) leaveRoomLocked(conn *Connection) {
	if conn.Room == "" {
		return
	}
	if pool, ok := cm.rooms[conn.Room]; ok {
		delete(pool, conn)
		if len(pool) == 0 {
			delete(cm.rooms, conn.Room)
		}
	}
	conn.Room = ""
}

// writePump handles sending messages to the WebSocket connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.dropConnection(c)
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump handles reading messages from the WebSocket connection.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.dropConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		if c.Manager.onMessage != nil {
			c.Manager.onMessage(c.ID, message)
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
