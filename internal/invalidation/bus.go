// Package invalidation fans cache invalidations out to other taskdeck
// processes over Redis pub/sub.
//
// Every process attached to the same Redis namespace receives the collection
// prefixes invalidated by the others and marks its own cached entries stale.
// Delivery is at-most-once; a missed message only delays a refetch.
package invalidation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"taskdeck/internal/cache"
)

// PublishTimeout bounds a single publish issued from an invalidation hook.
const PublishTimeout = 2 * time.Second

// Message is the JSON payload published for each invalidation.
type Message struct {
	Prefix string    `json:"prefix"`
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

// Channel returns the pub/sub channel for a namespace.
func Channel(namespace string) string {
	return fmt.Sprintf("taskdeck:%s:invalidations", namespace)
}

// Bus publishes and receives invalidations for one process.
// It is safe for concurrent use.
type Bus struct {
	rdb       *redis.Client
	namespace string
	origin    string
	logger    *slog.Logger
}

// NewBus creates a bus for namespace. Each bus gets a unique origin so it
// can ignore its own messages.
func NewBus(redisOpts *redis.Options, namespace string, logger *slog.Logger) (*Bus, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
		origin:    uuid.NewString(),
		logger:    logger,
	}, nil
}

// Origin identifies messages published by this bus.
func (b *Bus) Origin() string { return b.origin }

// Ping verifies Redis connectivity.
func (b *Bus) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (b *Bus) Close() error {
	return b.rdb.Close()
}

// Publish announces that entries under prefix are stale.
func (b *Bus) Publish(ctx context.Context, prefix string) error {
	data, err := json.Marshal(Message{Prefix: prefix, Origin: b.origin, At: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation: %w", err)
	}
	if err := b.rdb.Publish(ctx, Channel(b.namespace), data).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	return nil
}

// Attach publishes every local invalidation of store. Publish failures are
// logged and otherwise ignored.
func (b *Bus) Attach(store *cache.Store) {
	store.OnInvalidate(func(prefix string) {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()
		if err := b.Publish(ctx, prefix); err != nil {
			b.logger.Warn("invalidation not published", "prefix", prefix, "error", err)
		}
	})
}

// Subscription is an active Listen. Close stops it.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Close stops the subscription and waits for its goroutine to exit.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	<-s.done
	return nil
}

// Listen applies invalidations published by other buses to store until ctx
// is cancelled or the subscription is closed. It returns once the
// subscription is confirmed by Redis.
func (b *Bus) Listen(ctx context.Context, store *cache.Store) (*Subscription, error) {
	pubsub := b.rdb.Subscribe(ctx, Channel(b.namespace))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to invalidations: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.handle(store, msg.Payload)
			}
		}
	}()

	return sub, nil
}

// handle applies one payload and reports whether it changed the store.
func (b *Bus) handle(store *cache.Store, payload string) bool {
	var m Message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		b.logger.Warn("malformed invalidation", "error", err)
		return false
	}
	if m.Origin == b.origin || m.Prefix == "" {
		return false
	}
	n := store.ApplyRemoteInvalidation(m.Prefix)
	b.logger.Debug("remote invalidation", "prefix", m.Prefix, "origin", m.Origin, "entries", n)
	return n > 0
}
