package session

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/mossy-p/watchparty/internal/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recorder is a Sender that keeps every frame it receives.
type recorder struct {
	mu     sync.Mutex
	frames []models.Envelope
	full   bool
}

func (r *recorder) Send(data []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.full {
		return false
	}
	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		panic(err)
	}
	r.frames = append(r.frames, env)
	return true
}

func (r *recorder) events() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]models.EventType, 0, len(r.frames))
	for _, f := range r.frames {
		types = append(types, f.Type)
	}
	return types
}

func (r *recorder) count(event models.EventType) int {
	n := 0
	for _, e := range r.events() {
		if e == event {
			n++
		}
	}
	return n
}

// last returns the newest frame of the given type.
func (r *recorder) last(t *testing.T, event models.EventType) models.Envelope {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.frames) - 1; i >= 0; i-- {
		if r.frames[i].Type == event {
			return r.frames[i]
		}
	}
	t.Fatalf("no %q frame received; got %v", event, r.frames)
	return models.Envelope{}
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = nil
}

func payloadOf[T any](t *testing.T, env models.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// manualScheduler only fires timers when told to.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &manualTimer{delay: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// fire runs every timer that is neither stopped nor already fired.
func (s *manualScheduler) fire() int {
	s.mu.Lock()
	var due []*manualTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		t.f()
	}
	return len(due)
}

func (s *manualScheduler) pending() []*manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*manualTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

func newTestManager(t *testing.T, opts Options) (*Manager, *manualScheduler) {
	t.Helper()

	sched := &manualScheduler{}
	opts.Scheduler = sched
	m := NewManager(opts, zap.NewNop())
	t.Cleanup(m.Close)
	return m, sched
}

func connect(m *Manager, connID string) *recorder {
	rec := &recorder{}
	m.Connect(connID, rec)
	return rec
}

func send(t *testing.T, m *Manager, connID string, event models.EventType, payload any) {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	m.Dispatch(connID, models.Envelope{Type: event, Data: data})
}

func join(t *testing.T, m *Manager, connID, roomID, username string) *recorder {
	t.Helper()

	rec := connect(m, connID)
	send(t, m, connID, models.EventJoinRoom, models.JoinRoomPayload{RoomID: roomID, Username: username})
	return rec
}

func (d *peerDirectory) lookup(visitorID string) (string, bool) {
	addr, ok := d.addrs[visitorID]
	return addr, ok
}

func (s *sweeper) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
