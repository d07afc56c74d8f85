package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mossy-p/watchparty/config"
	"github.com/mossy-p/watchparty/internal/models"
	"github.com/mossy-p/watchparty/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPresence(t *testing.T) (*Presence, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewPresence(client, time.Hour, zap.NewNop()), mr
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := Connect(context.Background(), config.RedisConfig{Host: mr.Host(), Port: port})
	require.NoError(t, err)
	assert.NoError(t, client.Close())

	mr.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = Connect(ctx, config.RedisConfig{Host: mr.Host(), Port: port})
	assert.Error(t, err)
}

func TestPresenceMirrorsRoomLifecycle(t *testing.T) {
	p, mr := newTestPresence(t)

	summary := models.RoomSummary{ID: "R", UserCount: 1, VideoURL: "X", HostUsername: "Alice"}
	p.RoomUpdated(summary)
	p.UserJoined("R", "a")
	p.UserJoined("R", "b")
	p.UserLeft("R", "a")
	p.Close()

	raw, err := mr.Get(roomKey("R"))
	require.NoError(t, err)
	var stored models.RoomSummary
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, summary.ID, stored.ID)
	assert.Equal(t, "Alice", stored.HostUsername)
	assert.Equal(t, time.Hour, mr.TTL(roomKey("R")))

	members, err := mr.Members(peersKey("R"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, members)
	assert.Equal(t, time.Hour, mr.TTL(peersKey("R")))
}

func TestPresenceRoomDeleted(t *testing.T) {
	p, mr := newTestPresence(t)

	p.RoomUpdated(models.RoomSummary{ID: "R"})
	p.UserJoined("R", "a")
	p.RoomDeleted("R")
	p.Close()

	assert.False(t, mr.Exists(roomKey("R")))
	assert.False(t, mr.Exists(peersKey("R")))
}

func TestPresenceIgnoresUpdatesAfterClose(t *testing.T) {
	p, mr := newTestPresence(t)
	p.Close()
	p.Close()

	p.RoomUpdated(models.RoomSummary{ID: "R"})

	assert.False(t, mr.Exists(roomKey("R")))
}

func TestPresenceSurvivesRedisOutage(t *testing.T) {
	p, mr := newTestPresence(t)
	mr.Close()

	p.RoomUpdated(models.RoomSummary{ID: "R"})

	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		require.FailNow(t, "presence worker hung on a failed write")
	}
}

type nullSender struct{}

func (nullSender) Send([]byte) bool { return true }

func TestPresenceAsSessionMirror(t *testing.T) {
	p, mr := newTestPresence(t)

	var mu sync.Mutex
	var fire func()
	sched := schedulerFunc(func(_ time.Duration, f func()) session.Timer {
		mu.Lock()
		defer mu.Unlock()
		fire = f
		return time.NewTimer(time.Hour)
	})

	m := session.NewManager(session.Options{Mirror: p, Scheduler: sched}, zap.NewNop())
	defer m.Close()

	m.Connect("a", nullSender{})
	m.HandleFrame("a", []byte(`{"type":"join-room","data":{"roomId":"R","username":"Alice"}}`))
	m.Disconnect("a")

	mu.Lock()
	require.NotNil(t, fire)
	fire()
	mu.Unlock()

	p.Close()

	assert.False(t, mr.Exists(roomKey("R")))
	assert.False(t, mr.Exists(peersKey("R")))
	_, ok := m.Room("R")
	assert.False(t, ok)
}

type schedulerFunc func(d time.Duration, f func()) session.Timer

func (f schedulerFunc) AfterFunc(d time.Duration, fn func()) session.Timer { return f(d, fn) }
