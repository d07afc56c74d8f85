package session

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/mossy-p/watchparty/internal/models"
)

const guestNamePrefix = "Misafir"

// resolveUsername returns the trimmed client name, or a random guest name
// when none was supplied. Guest names are not unique within a room.
func resolveUsername(requested string) string {
	if name := strings.TrimSpace(requested); name != "" {
		return name
	}
	return fmt.Sprintf("%s%d", guestNamePrefix, rand.Intn(1000))
}

// electHost decides the host flag for a participant about to join room.
//
// Once a room has a recorded host username, anyone joining under exactly
// that name is host; this is how a host survives a reconnect, and it also
// means two people choosing the same name both get the flag. Without a
// recorded name the first joiner of an empty room is host and their name
// is recorded.
func electHost(room *models.Room, username string) bool {
	if room.HostUsername != "" {
		return username == room.HostUsername
	}
	if len(room.Users) == 0 {
		room.HostUsername = username
		return true
	}
	return false
}
