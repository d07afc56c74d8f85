// Package session is the room session manager: it owns the room store,
// the connection registry and the peer signaling directory, and applies
// the synchronization protocol to every inbound event.
package session

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/mossy-p/watchparty/internal/metrics"
	"github.com/mossy-p/watchparty/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Mirror receives room changes for an external, non-authoritative copy.
// Calls happen while the Manager lock is held, so implementations must
// not block.
type Mirror interface {
	RoomUpdated(summary models.RoomSummary)
	UserJoined(roomID, visitorID string)
	UserLeft(roomID, visitorID string)
	RoomDeleted(roomID string)
}

type noopMirror struct{}

func (noopMirror) RoomUpdated(models.RoomSummary) {}
func (noopMirror) UserJoined(string, string)      {}
func (noopMirror) UserLeft(string, string)        {}
func (noopMirror) RoomDeleted(string)             {}

// Options tunes the protocol limits. Zero values fall back to defaults.
type Options struct {
	RoomCapacity  int
	ChatRetention int
	ChatHistory   int
	EmptyRoomTTL  time.Duration

	// EventRate <= 0 disables per-connection rate limiting.
	EventRate  float64
	EventBurst int

	Scheduler Scheduler
	Mirror    Mirror
	Now       func() time.Time
}

// Defaults applied by NewManager for zero Options fields.
const (
	DefaultRoomCapacity  = 7
	DefaultChatRetention = 100
	DefaultChatHistory   = 50
	DefaultEmptyRoomTTL  = 60 * time.Second
)

func (o Options) withDefaults() Options {
	if o.RoomCapacity <= 0 {
		o.RoomCapacity = DefaultRoomCapacity
	}
	if o.ChatRetention <= 0 {
		o.ChatRetention = DefaultChatRetention
	}
	if o.ChatHistory <= 0 {
		o.ChatHistory = DefaultChatHistory
	}
	if o.EmptyRoomTTL <= 0 {
		o.EmptyRoomTTL = DefaultEmptyRoomTTL
	}
	if o.EventRate > 0 && o.EventBurst <= 0 {
		o.EventBurst = int(o.EventRate)
		if o.EventBurst < 1 {
			o.EventBurst = 1
		}
	}
	if o.Scheduler == nil {
		o.Scheduler = realScheduler{}
	}
	if o.Mirror == nil {
		o.Mirror = noopMirror{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Manager serializes every event, disconnect, query and sweep behind one
// mutex, so no two operations interleave on the shared maps.
type Manager struct {
	mu       sync.Mutex
	opts     Options
	logger   *zap.Logger
	store    *roomStore
	registry *registry
	peers    *peerDirectory
	sweeper  *sweeper
}

// NewManager creates a Manager ready to accept connections.
func NewManager(opts Options, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()

	m := &Manager{
		opts:     opts,
		logger:   logger.Named("session"),
		store:    newRoomStore(opts.Now),
		registry: newRegistry(),
		peers:    newPeerDirectory(),
	}
	m.sweeper = newSweeper(opts.Scheduler, opts.EmptyRoomTTL, m.sweep)
	return m
}

// Connect registers a live connection. Its id is the participant's
// visitor id for as long as the connection lives.
func (m *Manager) Connect(connID string, sender Sender) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &connSession{id: connID, sender: sender}
	if m.opts.EventRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(m.opts.EventRate), m.opts.EventBurst)
	}
	m.registry.add(s)
	metrics.ConnectionOpened()

	m.logger.Debug("connection registered", zap.String("conn_id", connID))
}

// Disconnect removes the connection's participant and signaling entry
// and tells the rest of its room.
func (m *Manager) Disconnect(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.registry.get(connID)
	if !ok {
		return
	}

	if s.joined() {
		m.leave(s)
	}
	m.peers.remove(s.id)
	m.registry.remove(s.id)
	metrics.ConnectionClosed()

	m.logger.Debug("connection removed", zap.String("conn_id", connID))
}

// HandleFrame decodes a raw websocket frame and dispatches it. Frames that
// are not a valid envelope are dropped.
func (m *Manager) HandleFrame(connID string, raw []byte) {
	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.EventDropped("malformed")
		m.logger.Warn("dropping malformed frame",
			zap.String("conn_id", connID),
			zap.Error(err),
		)
		return
	}
	m.Dispatch(connID, env)
}

// Dispatch applies one inbound event. Handler failures, including panics,
// are logged and never escape to the caller.
func (m *Manager) Dispatch(connID string, env models.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			metrics.EventDropped("panic")
			m.logger.Error("event handler panicked",
				zap.String("conn_id", connID),
				zap.String("event", string(env.Type)),
				zap.Any("panic", r),
			)
		}
	}()

	s, ok := m.registry.get(connID)
	if !ok {
		metrics.EventDropped("unknown_connection")
		return
	}

	handler, known := handlers[env.Type]
	if !known {
		metrics.EventReceived("unknown")
		m.logger.Debug("unknown event type",
			zap.String("conn_id", connID),
			zap.String("event", string(env.Type)),
		)
		return
	}
	metrics.EventReceived(string(env.Type))

	if s.limiter != nil && !s.limiter.Allow() {
		metrics.EventDropped("rate_limited")
		m.logger.Warn("event rate limit exceeded",
			zap.String("conn_id", connID),
			zap.String("event", string(env.Type)),
		)
		return
	}

	if err := handler(m, s, env.Data); err != nil {
		metrics.EventDropped("invalid_payload")
		m.logger.Warn("dropping event",
			zap.String("conn_id", connID),
			zap.String("event", string(env.Type)),
			zap.Error(err),
		)
	}
}

// CreateRoom creates a room with a fresh id. A non-empty username is
// recorded as the room's host name, so its creator is host on join. A room
// nobody joins is swept like any other empty room.
func (m *Manager) CreateRoom(username string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	room := m.store.create("")
	if name := strings.TrimSpace(username); name != "" {
		room.HostUsername = name
	}
	m.opts.Mirror.RoomUpdated(room.Summary())
	metrics.SetRooms(m.store.len())

	// Unjoined rooms count as empty.
	m.sweeper.schedule(room.ID)

	m.logger.Info("room created",
		zap.String("room_id", room.ID),
		zap.String("host_username", room.HostUsername),
	)
	return room.ID
}

// RoomInfo reports whether a room exists and how many users it has.
func (m *Manager) RoomInfo(roomID string) (userCount int, exists bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.store.get(roomID)
	if !ok {
		return 0, false
	}
	return len(room.Users), true
}

// Room returns a copy of the room's current state.
func (m *Manager) Room(roomID string) (models.Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.store.get(roomID)
	if !ok {
		return models.Room{}, false
	}
	return room.Clone(), true
}

// RoomCount returns the number of rooms held in memory.
func (m *Manager) RoomCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.len()
}

// ConnectionCount returns the number of registered connections.
func (m *Manager) ConnectionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registry.len()
}

// Close stops pending room sweeps. Rooms stay in memory until the process
// exits.
func (m *Manager) Close() {
	m.sweeper.close()
}

// leave removes s from its current room and notifies the remaining users.
func (m *Manager) leave(s *connSession) {
	roomID := s.roomID
	username := s.username
	s.roomID, s.username, s.isHost = "", "", false

	room, ok := m.store.get(roomID)
	if !ok {
		return
	}

	users := room.Users[:0]
	for _, u := range room.Users {
		if u.VisitorID != s.id {
			users = append(users, u)
		}
	}
	room.Users = users

	m.broadcast(room, models.EventUserLeft, models.UserLeftPayload{
		Username: username,
		Users:    room.UsersCopy(),
	}, "")

	m.opts.Mirror.UserLeft(room.ID, s.id)
	m.opts.Mirror.RoomUpdated(room.Summary())

	m.logger.Info("user left room",
		zap.String("room_id", room.ID),
		zap.String("username", username),
		zap.Int("users", len(room.Users)),
	)

	if len(room.Users) == 0 {
		m.sweeper.schedule(room.ID)
		m.logger.Debug("empty room scheduled for deletion",
			zap.String("room_id", room.ID),
			zap.Duration("delay", m.opts.EmptyRoomTTL),
		)
	}
}

// sweep deletes roomID if it is still empty when the delay expires.
func (m *Manager) sweep(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.store.get(roomID)
	if !ok || len(room.Users) > 0 {
		return
	}

	m.store.delete(roomID)
	m.opts.Mirror.RoomDeleted(roomID)
	metrics.RoomDeleted()
	metrics.SetRooms(m.store.len())

	m.logger.Info("empty room deleted", zap.String("room_id", roomID))
}

func (m *Manager) encode(event models.EventType, data any) ([]byte, bool) {
	frame, err := json.Marshal(models.OutboundEnvelope{Type: event, Data: data})
	if err != nil {
		m.logger.Error("failed to encode frame",
			zap.String("event", string(event)),
			zap.Error(err),
		)
		return nil, false
	}
	return frame, true
}

// emit sends to one connection only.
func (m *Manager) emit(s *connSession, event models.EventType, data any) {
	frame, ok := m.encode(event, data)
	if !ok {
		return
	}
	m.deliver(s, event, frame)
}

// broadcast sends to every current user of room except the visitor named
// by exceptID (empty = whole room).
func (m *Manager) broadcast(room *models.Room, event models.EventType, data any, exceptID string) {
	frame, ok := m.encode(event, data)
	if !ok {
		return
	}

	for _, u := range room.Users {
		if u.VisitorID == exceptID {
			continue
		}
		if s, ok := m.registry.get(u.VisitorID); ok {
			m.deliver(s, event, frame)
		}
	}
}

func (m *Manager) deliver(s *connSession, event models.EventType, frame []byte) {
	if s.sender.Send(frame) {
		return
	}
	metrics.FrameDropped()
	m.logger.Warn("send buffer full, frame dropped",
		zap.String("conn_id", s.id),
		zap.String("event", string(event)),
	)
}
