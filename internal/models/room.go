package models

import "time"

// Room is a watch-party session: shared playback state, participants and
// recent chat under one identifier.
type Room struct {
	ID           string        `json:"id"`
	VideoURL     string        `json:"videoUrl"`
	IsPlaying    bool          `json:"isPlaying"`
	CurrentTime  float64       `json:"currentTime"`
	Users        []Participant `json:"users"`
	Messages     []ChatMessage `json:"messages"`
	HostUsername string        `json:"-"` // empty until a host is recorded
	CreatedAt    time.Time     `json:"createdAt"`
}

// Participant is one connection's membership in a room.
type Participant struct {
	VisitorID string    `json:"visitorId"`
	Username  string    `json:"username"`
	JoinedAt  time.Time `json:"joinedAt"`
	IsHost    bool      `json:"isHost"`
}

// ChatMessage is never mutated after creation.
type ChatMessage struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRoom returns an empty room with non-nil slices so it encodes as [] on the wire.
func NewRoom(id string, now time.Time) *Room {
	return &Room{
		ID:        id,
		Users:     []Participant{},
		Messages:  []ChatMessage{},
		CreatedAt: now,
	}
}

// UsersCopy returns a snapshot of the participant list safe to hand to
// another goroutine.
func (r *Room) UsersCopy() []Participant {
	users := make([]Participant, len(r.Users))
	copy(users, r.Users)
	return users
}

// RecentMessages returns up to n of the newest messages, oldest first.
func (r *Room) RecentMessages(n int) []ChatMessage {
	start := len(r.Messages) - n
	if start < 0 {
		start = 0
	}
	msgs := make([]ChatMessage, len(r.Messages)-start)
	copy(msgs, r.Messages[start:])
	return msgs
}

// Clone returns a deep copy of the room.
func (r *Room) Clone() Room {
	c := *r
	c.Users = r.UsersCopy()
	c.Messages = r.RecentMessages(len(r.Messages))
	return c
}

// RoomSummary is the compact room view mirrored to redis.
type RoomSummary struct {
	ID           string    `json:"id"`
	UserCount    int       `json:"userCount"`
	VideoURL     string    `json:"videoUrl"`
	IsPlaying    bool      `json:"isPlaying"`
	HostUsername string    `json:"hostUsername,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Summary builds the mirrored view of the room.
func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		ID:           r.ID,
		UserCount:    len(r.Users),
		VideoURL:     r.VideoURL,
		IsPlaying:    r.IsPlaying,
		HostUsername: r.HostUsername,
		CreatedAt:    r.CreatedAt,
	}
}

// CreateRoomResponse is the body of GET /api/create-room.
type CreateRoomResponse struct {
	RoomID string `json:"roomId"`
}

// RoomInfoResponse is the body of GET /api/room/:roomId.
type RoomInfoResponse struct {
	Exists    bool `json:"exists"`
	UserCount *int `json:"userCount,omitempty"`
}
