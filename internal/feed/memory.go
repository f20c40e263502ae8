package feed

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/shelf/internal/changefeed"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// MemoryBroker is an in-process Broker for single-instance deployments.
type MemoryBroker struct {
	mu     sync.Mutex
	subs   map[string]map[*memorySub]struct{}
	buffer int
	closed bool
	log    logger.Logger
}

var _ Broker = (*MemoryBroker)(nil)

// NewMemoryBroker creates a broker. A nil logger discards output.
func NewMemoryBroker(log logger.Logger) *MemoryBroker {
	if log == nil {
		log = logger.Nop()
	}
	return &MemoryBroker{
		subs:   make(map[string]map[*memorySub]struct{}),
		buffer: DefaultBuffer,
		log:    log,
	}
}

func (b *MemoryBroker) Publish(_ context.Context, userID string, env changefeed.Envelope) error {
	channel := changefeed.Channel(env.Table, userID)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	set := b.subs[channel]
	for sub := range set {
		select {
		case sub.ch <- env:
		default:
			b.log.Warn("subscriber queue full, closing subscription",
				logger.String("channel", channel),
				logger.String("event", string(env.EventType)))
			delete(set, sub)
			sub.closeLocked()
		}
	}
	if set != nil && len(set) == 0 {
		delete(b.subs, channel)
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, userID string, table changefeed.Table) (Subscription, error) {
	channel := changefeed.Channel(table, userID)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	sub := &memorySub{
		broker:  b,
		channel: channel,
		ch:      make(chan changefeed.Envelope, b.buffer),
		stop:    make(chan struct{}),
	}
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*memorySub]struct{})
	}
	b.subs[channel][sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.stop:
		}
	}()

	return sub, nil
}

// Subscribers reports how many subscriptions are attached to a channel.
func (b *MemoryBroker) Subscribers(userID string, table changefeed.Table) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[changefeed.Channel(table, userID)])
}

func (b *MemoryBroker) Ping(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}

// Close ends every subscription.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for channel, set := range b.subs {
		for sub := range set {
			sub.closeLocked()
		}
		delete(b.subs, channel)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────
// subscription
// ─────────────────────────────────────────────────────────────────

type memorySub struct {
	broker  *MemoryBroker
	channel string
	ch      chan changefeed.Envelope
	stop    chan struct{}
	done    bool
}

func (s *memorySub) C() <-chan changefeed.Envelope { return s.ch }

func (s *memorySub) Close() error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()

	if s.done {
		return nil
	}
	if set := s.broker.subs[s.channel]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(s.broker.subs, s.channel)
		}
	}
	s.closeLocked()
	return nil
}

// closeLocked requires broker.mu.
func (s *memorySub) closeLocked() {
	if s.done {
		return
	}
	s.done = true
	close(s.stop)
	close(s.ch)
}
