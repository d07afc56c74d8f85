package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/mossy-p/watchparty/internal/models"
)

const roomIDLength = 8

// roomStore maps room ids to rooms. It does no locking of its own; the
// Manager mutex guards every call.
type roomStore struct {
	rooms map[string]*models.Room
	now   func() time.Time
}

func newRoomStore(now func() time.Time) *roomStore {
	return &roomStore{
		rooms: make(map[string]*models.Room),
		now:   now,
	}
}

// create returns the room with the given id, creating it when absent. An
// empty id gets a fresh short token.
func (s *roomStore) create(roomID string) *models.Room {
	if roomID == "" {
		roomID = s.newID()
	}
	if room, ok := s.rooms[roomID]; ok {
		return room
	}

	room := models.NewRoom(roomID, s.now())
	s.rooms[roomID] = room
	return room
}

func (s *roomStore) get(roomID string) (*models.Room, bool) {
	room, ok := s.rooms[roomID]
	return room, ok
}

func (s *roomStore) delete(roomID string) {
	delete(s.rooms, roomID)
}

func (s *roomStore) len() int {
	return len(s.rooms)
}

func (s *roomStore) newID() string {
	for {
		id := uuid.NewString()[:roomIDLength]
		if _, taken := s.rooms[id]; !taken {
			return id
		}
	}
}
