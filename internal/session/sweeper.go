package session

import (
	"sync"
	"time"
)

// Timer is the handle returned by a Scheduler.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d elapses.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// sweeper schedules delayed checks for rooms that became empty. Each room
// has at most one pending check: scheduling again replaces the earlier one,
// so a room is only considered after a full delay since it last emptied.
// Whether the room is deleted is still decided at fire time.
type sweeper struct {
	scheduler Scheduler
	delay     time.Duration
	check     func(roomID string)

	mu      sync.Mutex
	seq     uint64
	pending map[string]pendingCheck
	closed  bool
}

type pendingCheck struct {
	seq   uint64
	timer Timer
}

func newSweeper(scheduler Scheduler, delay time.Duration, check func(roomID string)) *sweeper {
	return &sweeper{
		scheduler: scheduler,
		delay:     delay,
		check:     check,
		pending:   make(map[string]pendingCheck),
	}
}

func (s *sweeper) schedule(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if prev, ok := s.pending[roomID]; ok {
		prev.timer.Stop()
	}

	s.seq++
	seq := s.seq
	timer := s.scheduler.AfterFunc(s.delay, func() {
		s.mu.Lock()
		cur, ok := s.pending[roomID]
		live := ok && cur.seq == seq
		if live {
			delete(s.pending, roomID)
		}
		s.mu.Unlock()

		// A stale timer that raced its replacement's Stop does nothing.
		if live {
			s.check(roomID)
		}
	})
	s.pending[roomID] = pendingCheck{seq: seq, timer: timer}
}

func (s *sweeper) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for roomID, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, roomID)
	}
}
