// Package redis implements feed.Broker over Redis pub/sub so several
// service instances share one change feed.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/shelf/internal/changefeed"
	"github.com/MrSnakeDoc/shelf/internal/feed"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// Broker publishes envelopes as JSON messages
type Broker struct {
	client *redis.Client
	log    logger.Logger
}

var _ feed.Broker = (*Broker)(nil)

// NewBroker creates a broker on an already connected client
func NewBroker(client *redis.Client, log logger.Logger) *Broker {
	if log == nil {
		log = logger.Nop()
	}
	return &Broker{
		client: client,
		log:    log,
	}
}

// Publish sends an envelope to every subscriber of the owner's table
func (b *Broker) Publish(ctx context.Context, userID string, env changefeed.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := b.client.Publish(ctx, ChannelKey(env.Table, userID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish envelope: %w", err)
	}
	return nil
}

// Subscribe waits for the SUBSCRIBE confirmation before returning
func (b *Broker) Subscribe(ctx context.Context, userID string, table changefeed.Table) (feed.Subscription, error) {
	channel := ChannelKey(table, userID)
	ps := b.client.Subscribe(ctx, channel)

	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe %s: %w", channel, err)
	}

	sub := &subscription{
		ps:   ps,
		ch:   make(chan changefeed.Envelope, feed.DefaultBuffer),
		stop: make(chan struct{}),
		log:  b.log,
	}
	go sub.pump(ctx, channel)
	return sub, nil
}

func (b *Broker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close does not close the shared client; the owner of the client does.
func (b *Broker) Close() error {
	return nil
}

// ─────────────────────────────────────────────────────────────────
// subscription
// ─────────────────────────────────────────────────────────────────

type subscription struct {
	ps   *redis.PubSub
	ch   chan changefeed.Envelope
	stop chan struct{}
	once sync.Once
	log  logger.Logger
}

func (s *subscription) C() <-chan changefeed.Envelope { return s.ch }

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stop)
		err = s.ps.Close()
	})
	return err
}

// offer queues env without blocking. A full queue means the reader fell
// behind and has already missed changes.
func (s *subscription) offer(env changefeed.Envelope) bool {
	select {
	case s.ch <- env:
		return true
	default:
		return false
	}
}

func (s *subscription) pump(ctx context.Context, channel string) {
	defer close(s.ch)

	msgs := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = s.Close()
			return
		case <-s.stop:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			var env changefeed.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				s.log.Warn("skipping undecodable envelope",
					logger.String("channel", channel),
					logger.Error(err))
				continue
			}

			if !s.offer(env) {
				s.log.Warn("subscriber queue full, closing subscription",
					logger.String("channel", channel),
					logger.String("event", string(env.EventType)))
				_ = s.Close()
				return
			}
		}
	}
}
