// Package feed fans change envelopes out to realtime subscribers, one
// channel per owner and table.
package feed

import (
	"context"
	"errors"

	"github.com/MrSnakeDoc/shelf/internal/changefeed"
)

// DefaultBuffer is the per-subscription queue length. A subscriber that
// falls this far behind is closed, so its client reconnects and reloads.
const DefaultBuffer = 64

// ErrClosed is returned by a broker after Close.
var ErrClosed = errors.New("broker closed")

// Subscription delivers envelopes for one owner and table.
// C is closed when the subscription ends.
type Subscription interface {
	C() <-chan changefeed.Envelope
	Close() error
}

// Broker publishes and subscribes change envelopes.
type Broker interface {
	Publish(ctx context.Context, userID string, env changefeed.Envelope) error
	Subscribe(ctx context.Context, userID string, table changefeed.Table) (Subscription, error)
	Ping(ctx context.Context) error
	Close() error
}

// PublishAll publishes envelopes in order and stops at the first error.
func PublishAll(ctx context.Context, b Broker, userID string, envs ...changefeed.Envelope) error {
	for _, env := range envs {
		if err := b.Publish(ctx, userID, env); err != nil {
			return err
		}
	}
	return nil
}
