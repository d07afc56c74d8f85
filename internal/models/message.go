package models

import "encoding/json"

// EventType names an inbound or outbound websocket event
type EventType string

// Inbound events (client -> server)
const (
	EventJoinRoom       EventType = "join-room"
	EventGetRoomUsers   EventType = "get-room-users"
	EventSetVideo       EventType = "set-video"
	EventPlayPause      EventType = "play-pause"
	EventSeek           EventType = "seek"
	EventGetCurrentTime EventType = "get-current-time"
	EventChatMessage    EventType = "chat-message"
	EventReaction       EventType = "reaction"
	EventPeerID         EventType = "peer-id"
	EventGetPeerIDs     EventType = "get-peer-ids"
)

// Outbound events (server -> client)
const (
	EventRoomFull       EventType = "room-full"
	EventUserJoined     EventType = "user-joined"
	EventChatHistory    EventType = "chat-history"
	EventYourHostStatus EventType = "your-host-status"
	EventRoomUsers      EventType = "room-users"
	EventVideoChanged   EventType = "video-changed"
	EventSyncVideo      EventType = "sync-video"
	EventCurrentTime    EventType = "current-time"
	EventNewMessage     EventType = "new-message"
	EventShowReaction   EventType = "show-reaction"
	EventUserPeerID     EventType = "user-peer-id"
	EventPeerIDs        EventType = "peer-ids"
	EventUserLeft       EventType = "user-left"
)

// Envelope is the frame carried over the websocket in both directions.
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// OutboundEnvelope is the encode-side twin of Envelope.
type OutboundEnvelope struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

// Inbound payloads

type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type RoomPayload struct {
	RoomID string `json:"roomId"`
}

type SetVideoPayload struct {
	RoomID   string `json:"roomId"`
	VideoURL string `json:"videoUrl"`
}

type PlayPausePayload struct {
	RoomID      string  `json:"roomId"`
	IsPlaying   bool    `json:"isPlaying"`
	CurrentTime float64 `json:"currentTime"`
}

type SeekPayload struct {
	RoomID      string  `json:"roomId"`
	CurrentTime float64 `json:"currentTime"`
}

type ChatMessagePayload struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

type ReactionPayload struct {
	RoomID string `json:"roomId"`
	Emoji  string `json:"emoji"`
}

type PeerIDPayload struct {
	RoomID string `json:"roomId"`
	PeerID string `json:"peerId"`
}

// Outbound payloads

type UserJoinedPayload struct {
	User        Participant   `json:"user"`
	Users       []Participant `json:"users"`
	VideoURL    string        `json:"videoUrl"`
	IsPlaying   bool          `json:"isPlaying"`
	CurrentTime float64       `json:"currentTime"`
}

type HostStatusPayload struct {
	IsHost bool `json:"isHost"`
}

type VideoChangedPayload struct {
	VideoURL string `json:"videoUrl"`
}

type SyncVideoPayload struct {
	IsPlaying   bool    `json:"isPlaying"`
	CurrentTime float64 `json:"currentTime"`
}

type CurrentTimePayload struct {
	CurrentTime float64 `json:"currentTime"`
}

type ShowReactionPayload struct {
	Username string `json:"username"`
	Emoji    string `json:"emoji"`
}

// PeerEntry pairs a participant's signaling address with its display name.
type PeerEntry struct {
	PeerID   string `json:"peerId"`
	Username string `json:"username"`
}

type UserLeftPayload struct {
	Username string        `json:"username"`
	Users    []Participant `json:"users"`
}
