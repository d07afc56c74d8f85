package session

import "github.com/mossy-p/watchparty/internal/models"

// peerDirectory holds the signaling address each participant announced.
// It is global; room scoping happens at query time by filtering a room's
// current users.
type peerDirectory struct {
	addrs map[string]string // visitorId -> signaling address
}

func newPeerDirectory() *peerDirectory {
	return &peerDirectory{addrs: make(map[string]string)}
}

func (d *peerDirectory) set(visitorID, addr string) {
	d.addrs[visitorID] = addr
}

func (d *peerDirectory) remove(visitorID string) {
	delete(d.addrs, visitorID)
}

// peersOf lists every participant of users except the excluded visitor
// that has a recorded, non-empty address. Order follows join order.
func (d *peerDirectory) peersOf(users []models.Participant, excludeVisitorID string) []models.PeerEntry {
	peers := make([]models.PeerEntry, 0, len(users))
	for _, u := range users {
		if u.VisitorID == excludeVisitorID {
			continue
		}
		addr, ok := d.addrs[u.VisitorID]
		if !ok || addr == "" {
			continue
		}
		peers = append(peers, models.PeerEntry{PeerID: addr, Username: u.Username})
	}
	return peers
}
