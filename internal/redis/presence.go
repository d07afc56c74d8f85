package redis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/mossy-p/watchparty/internal/metrics"
	"github.com/mossy-p/watchparty/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	queueSize = 1024
	opTimeout = 2 * time.Second
)

func roomKey(roomID string) string  { return "room:" + roomID }
func peersKey(roomID string) string { return "room:" + roomID + ":peers" }

type op struct {
	name string
	run  func(ctx context.Context) error
}

// Presence mirrors room summaries and member sets into redis for outside
// observers. Writes are queued and applied by one worker, so callers never
// wait on the network; the in-memory store stays authoritative.
type Presence struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	ops    chan op
	done   chan struct{}
}

// NewPresence starts the mirror worker. Keys expire after ttl unless
// refreshed by further room activity.
func NewPresence(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Presence {
	p := &Presence{
		client: client,
		ttl:    ttl,
		logger: logger.Named("presence"),
		ops:    make(chan op, queueSize),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Presence) run() {
	defer close(p.done)

	for o := range p.ops {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		err := o.run(ctx)
		cancel()

		if err != nil {
			metrics.MirrorError("redis")
			p.logger.Warn("presence mirror write failed",
				zap.String("op", o.name),
				zap.Error(err),
			)
		}
	}
}

func (p *Presence) enqueue(name string, run func(ctx context.Context) error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}

	select {
	case p.ops <- op{name: name, run: run}:
	default:
		metrics.MirrorError("queue_full")
		p.logger.Warn("presence queue full, dropping update", zap.String("op", name))
	}
}

// RoomUpdated stores the room summary under room:<id>.
func (p *Presence) RoomUpdated(summary models.RoomSummary) {
	p.enqueue("room_updated", func(ctx context.Context) error {
		data, err := json.Marshal(summary)
		if err != nil {
			return err
		}
		return p.client.Set(ctx, roomKey(summary.ID), data, p.ttl).Err()
	})
}

// UserJoined adds the visitor to room:<id>:peers.
func (p *Presence) UserJoined(roomID, visitorID string) {
	p.enqueue("user_joined", func(ctx context.Context) error {
		pipe := p.client.TxPipeline()
		pipe.SAdd(ctx, peersKey(roomID), visitorID)
		pipe.Expire(ctx, peersKey(roomID), p.ttl)
		_, err := pipe.Exec(ctx)
		return err
	})
}

// UserLeft removes the visitor from room:<id>:peers.
func (p *Presence) UserLeft(roomID, visitorID string) {
	p.enqueue("user_left", func(ctx context.Context) error {
		return p.client.SRem(ctx, peersKey(roomID), visitorID).Err()
	})
}

// RoomDeleted drops both keys of the room.
func (p *Presence) RoomDeleted(roomID string) {
	p.enqueue("room_deleted", func(ctx context.Context) error {
		return p.client.Del(ctx, roomKey(roomID), peersKey(roomID)).Err()
	})
}

// Close stops accepting updates and waits for queued writes to finish.
func (p *Presence) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.ops)
	p.mu.Unlock()

	<-p.done
}
