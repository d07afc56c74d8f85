package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mossy-p/watchparty/internal/metrics"
	"github.com/mossy-p/watchparty/internal/models"
	"go.uber.org/zap"
)

var (
	errMissingRoomID = errors.New("roomId is required")
	errMissingPeerID = errors.New("peerId is required")
)

type eventHandler func(m *Manager, s *connSession, data json.RawMessage) error

var handlers = map[models.EventType]eventHandler{
	models.EventJoinRoom:       (*Manager).handleJoinRoom,
	models.EventGetRoomUsers:   (*Manager).handleGetRoomUsers,
	models.EventSetVideo:       (*Manager).handleSetVideo,
	models.EventPlayPause:      (*Manager).handlePlayPause,
	models.EventSeek:           (*Manager).handleSeek,
	models.EventGetCurrentTime: (*Manager).handleGetCurrentTime,
	models.EventChatMessage:    (*Manager).handleChatMessage,
	models.EventReaction:       (*Manager).handleReaction,
	models.EventPeerID:         (*Manager).handlePeerID,
	models.EventGetPeerIDs:     (*Manager).handleGetPeerIDs,
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// ownRoom resolves the room a mutating event applies to: the sender's
// joined room, provided the payload does not name a different one.
func (m *Manager) ownRoom(s *connSession, requested string) (*models.Room, bool) {
	if !s.joined() {
		return nil, false
	}
	if requested != "" && requested != s.roomID {
		return nil, false
	}
	return m.store.get(s.roomID)
}

// queryRoom resolves the room a read-only event asks about.
func (m *Manager) queryRoom(s *connSession, requested string) (*models.Room, bool) {
	roomID := requested
	if roomID == "" {
		roomID = s.roomID
	}
	if roomID == "" {
		return nil, false
	}
	return m.store.get(roomID)
}

func (m *Manager) handleJoinRoom(s *connSession, data json.RawMessage) error {
	var p models.JoinRoomPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	roomID := strings.TrimSpace(p.RoomID)
	if roomID == "" {
		return errMissingRoomID
	}

	if room, ok := m.store.get(roomID); ok && s.roomID != roomID && len(room.Users) >= m.opts.RoomCapacity {
		metrics.RoomFull()
		m.emit(s, models.EventRoomFull, nil)
		m.logger.Info("join rejected, room full",
			zap.String("room_id", roomID),
			zap.String("conn_id", s.id),
		)
		return nil
	}

	if s.joined() {
		m.leave(s)
	}

	room := m.store.create(roomID)
	username := resolveUsername(p.Username)
	isHost := electHost(room, username)

	user := models.Participant{
		VisitorID: s.id,
		Username:  username,
		JoinedAt:  m.opts.Now(),
		IsHost:    isHost,
	}
	room.Users = append(room.Users, user)
	s.roomID, s.username, s.isHost = room.ID, username, isHost

	m.opts.Mirror.UserJoined(room.ID, s.id)
	m.opts.Mirror.RoomUpdated(room.Summary())
	metrics.SetRooms(m.store.len())

	m.broadcast(room, models.EventUserJoined, models.UserJoinedPayload{
		User:        user,
		Users:       room.UsersCopy(),
		VideoURL:    room.VideoURL,
		IsPlaying:   room.IsPlaying,
		CurrentTime: room.CurrentTime,
	}, "")
	m.emit(s, models.EventChatHistory, room.RecentMessages(m.opts.ChatHistory))
	m.emit(s, models.EventYourHostStatus, models.HostStatusPayload{IsHost: isHost})

	m.logger.Info("user joined room",
		zap.String("room_id", room.ID),
		zap.String("username", username),
		zap.Bool("is_host", isHost),
		zap.Int("users", len(room.Users)),
	)
	return nil
}

func (m *Manager) handleGetRoomUsers(s *connSession, data json.RawMessage) error {
	var p models.RoomPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	room, ok := m.queryRoom(s, p.RoomID)
	if !ok {
		return nil
	}
	m.emit(s, models.EventRoomUsers, room.UsersCopy())
	return nil
}

func (m *Manager) handleSetVideo(s *connSession, data json.RawMessage) error {
	var p models.SetVideoPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	room, ok := m.ownRoom(s, p.RoomID)
	if !ok || !s.isHost {
		return nil
	}

	room.VideoURL = p.VideoURL
	room.CurrentTime = 0
	room.IsPlaying = false
	m.opts.Mirror.RoomUpdated(room.Summary())

	m.broadcast(room, models.EventVideoChanged, models.VideoChangedPayload{VideoURL: p.VideoURL}, "")

	m.logger.Info("video changed",
		zap.String("room_id", room.ID),
		zap.String("video_url", p.VideoURL),
	)
	return nil
}

func (m *Manager) handlePlayPause(s *connSession, data json.RawMessage) error {
	var p models.PlayPausePayload
	if err := decode(data, &p); err != nil {
		return err
	}

	room, ok := m.ownRoom(s, p.RoomID)
	if !ok || !s.isHost {
		return nil
	}

	room.IsPlaying = p.IsPlaying
	room.CurrentTime = p.CurrentTime
	m.opts.Mirror.RoomUpdated(room.Summary())

	m.broadcast(room, models.EventSyncVideo, models.SyncVideoPayload{
		IsPlaying:   p.IsPlaying,
		CurrentTime: p.CurrentTime,
	}, s.id)
	return nil
}

func (m *Manager) handleSeek(s *connSession, data json.RawMessage) error {
	var p models.SeekPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	room, ok := m.ownRoom(s, p.RoomID)
	if !ok || !s.isHost {
		return nil
	}

	room.CurrentTime = p.CurrentTime

	m.broadcast(room, models.EventSyncVideo, models.SyncVideoPayload{
		IsPlaying:   room.IsPlaying,
		CurrentTime: p.CurrentTime,
	}, s.id)
	return nil
}

func (m *Manager) handleGetCurrentTime(s *connSession, data json.RawMessage) error {
	var p models.RoomPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	room, ok := m.queryRoom(s, p.RoomID)
	if !ok {
		return nil
	}
	m.emit(s, models.EventCurrentTime, models.CurrentTimePayload{CurrentTime: room.CurrentTime})
	return nil
}

func (m *Manager) handleChatMessage(s *connSession, data json.RawMessage) error {
	var p models.ChatMessagePayload
	if err := decode(data, &p); err != nil {
		return err
	}

	room, ok := m.ownRoom(s, p.RoomID)
	if !ok {
		return nil
	}
	text := strings.TrimSpace(p.Message)
	if text == "" {
		return nil
	}

	msg := models.ChatMessage{
		ID:        uuid.NewString(),
		Username:  s.username,
		Message:   text,
		Timestamp: m.opts.Now(),
	}
	room.Messages = append(room.Messages, msg)
	if excess := len(room.Messages) - m.opts.ChatRetention; excess > 0 {
		room.Messages = append(room.Messages[:0:0], room.Messages[excess:]...)
	}

	m.broadcast(room, models.EventNewMessage, msg, "")
	return nil
}

func (m *Manager) handleReaction(s *connSession, data json.RawMessage) error {
	var p models.ReactionPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	room, ok := m.ownRoom(s, p.RoomID)
	if !ok {
		return nil
	}

	m.broadcast(room, models.EventShowReaction, models.ShowReactionPayload{
		Username: s.username,
		Emoji:    p.Emoji,
	}, "")
	return nil
}

func (m *Manager) handlePeerID(s *connSession, data json.RawMessage) error {
	var p models.PeerIDPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	peerID := strings.TrimSpace(p.PeerID)
	if peerID == "" {
		return errMissingPeerID
	}

	room, ok := m.ownRoom(s, p.RoomID)
	if !ok {
		return nil
	}

	m.peers.set(s.id, peerID)

	m.broadcast(room, models.EventUserPeerID, models.PeerEntry{
		PeerID:   peerID,
		Username: s.username,
	}, s.id)
	return nil
}

func (m *Manager) handleGetPeerIDs(s *connSession, data json.RawMessage) error {
	var p models.RoomPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	room, ok := m.queryRoom(s, p.RoomID)
	if !ok {
		return nil
	}
	m.emit(s, models.EventPeerIDs, m.peers.peersOf(room.Users, s.id))
	return nil
}
