// Package subscription keeps one live change subscription per (user, table)
// and reconnects with exponential backoff when the channel drops.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/changefeed"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

const (
	DefaultBackoffUnit = time.Second
	DefaultMaxAttempts = 5
	maxBackoffUnits    = 30
)

// Status is the lifecycle state of a subscription.
type Status int

const (
	Connecting Status = iota
	Subscribed
	Reconnecting
	Failed
	Closed
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Subscribed:
		return "subscribed"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Key identifies a subscription.
type Key struct {
	UserID string
	Table  changefeed.Table
}

func (k Key) String() string { return string(k.Table) + ":" + k.UserID }

// Stream yields raw change envelopes until it fails or is closed.
// A Recv error wrapping ErrMalformed skips one message only.
type Stream interface {
	Recv(ctx context.Context) (changefeed.Envelope, error)
	Close() error
}

// Transport opens a change stream filtered to one owner and table.
// It should wrap failures with ErrChannel or ErrTimedOut.
type Transport interface {
	Subscribe(ctx context.Context, userID string, table changefeed.Table) (Stream, error)
}

// Listener receives every decoded event. Returned errors and panics are
// reported as HandlerError and do not stop delivery.
type Listener func(changefeed.Event) error

// Options tunes reconnect behavior and surfaces callbacks.
type Options struct {
	// BackoffUnit is the first reconnect delay; it doubles per failure.
	BackoffUnit time.Duration
	// MaxBackoff caps the delay. Defaults to 30 backoff units.
	MaxBackoff time.Duration
	// MaxAttempts is the number of consecutive failures that ends a subscription.
	MaxAttempts int

	// OnStatus observes status transitions. err is set for Reconnecting and Failed.
	OnStatus func(key Key, status Status, err error)
	// OnError receives HandlerError and SubscriptionFailedError values.
	OnError func(err error)

	Logger logger.Logger
}

func (o Options) withDefaults() Options {
	if o.BackoffUnit <= 0 {
		o.BackoffUnit = DefaultBackoffUnit
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = maxBackoffUnits * o.BackoffUnit
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	return o
}

// Backoff returns the delay before the next attempt after n consecutive failures.
func (o Options) Backoff(n int) time.Duration {
	o = o.withDefaults()
	if n < 1 {
		n = 1
	}
	d := o.BackoffUnit
	for i := 1; i < n; i++ {
		d *= 2
		if d >= o.MaxBackoff {
			return o.MaxBackoff
		}
	}
	if d > o.MaxBackoff {
		return o.MaxBackoff
	}
	return d
}

// Manager owns every live subscription of a session.
type Manager struct {
	transport Transport
	opts      Options
	log       logger.Logger

	mu     sync.Mutex
	subs   map[Key]*Handle
	closed bool
}

// NewManager creates a Manager using transport.
func NewManager(transport Transport, opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		transport: transport,
		opts:      opts,
		log:       opts.Logger,
		subs:      make(map[Key]*Handle),
	}
}

// Open returns the live subscription for (userID, table), starting one if
// none exists. Opening an existing key never creates a second channel.
func (m *Manager) Open(userID string, table changefeed.Table) (*Handle, error) {
	if userID == "" {
		return nil, errors.New("subscription requires a user id")
	}
	if !table.Valid() {
		return nil, fmt.Errorf("%w: %q", changefeed.ErrUnknownTable, table)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	key := Key{UserID: userID, Table: table}
	if h, ok := m.subs[key]; ok {
		return h, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		key:    key,
		m:      m,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		status: Connecting,
	}
	m.subs[key] = h

	go h.run()

	return h, nil
}

// Close tears down every subscription and waits for them to stop.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	handles := make([]*Handle, 0, len(m.subs))
	for _, h := range m.subs {
		handles = append(handles, h)
	}
	m.subs = make(map[Key]*Handle)
	m.mu.Unlock()

	for _, h := range handles {
		h.Close()
	}
}

// Active returns the number of live subscriptions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.subs)
}

func (m *Manager) forget(h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.subs[h.key]; ok && cur == h {
		delete(m.subs, h.key)
	}
}

func (m *Manager) reportError(err error) {
	if m.opts.OnError != nil {
		m.opts.OnError(err)
		return
	}
	m.log.Warn("subscription error", logger.Error(err))
}

// Handle is one live subscription.
type Handle struct {
	key    Key
	m      *Manager
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	listeners []listenerEntry
	nextID    int
	status    Status
	err       error
}

type listenerEntry struct {
	id int
	fn Listener
}

// Key returns the subscription key.
func (h *Handle) Key() Key { return h.key }

// Status returns the current status.
func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.status
}

// Err returns the terminal error once the subscription has failed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.err
}

// Done is closed when the subscription goroutine exits.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Listen registers fn; listeners run in registration order.
// The returned func unregisters it.
func (h *Handle) Listen(fn Listener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.listeners = append(h.listeners, listenerEntry{id: id, fn: fn})

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, l := range h.listeners {
			if l.id == id {
				h.listeners = append(h.listeners[:i:i], h.listeners[i+1:]...)
				return
			}
		}
	}
}

// Close stops the subscription, cancelling any pending reconnect, and
// waits for its goroutine to exit. It must not be called from a listener.
func (h *Handle) Close() {
	h.cancel()
	<-h.done
	h.m.forget(h)
}

func (h *Handle) run() {
	defer close(h.done)

	opts := h.m.opts
	log := h.m.log
	failures := 0

	if opts.OnStatus != nil {
		opts.OnStatus(h.key, Connecting, nil)
	}

	for {
		if h.ctx.Err() != nil {
			h.setStatus(Closed, nil)
			return
		}

		err := h.attempt(&failures)

		if h.ctx.Err() != nil {
			h.setStatus(Closed, nil)
			return
		}

		failures++
		if failures >= opts.MaxAttempts {
			h.fail(err, failures)
			return
		}

		delay := opts.Backoff(failures)
		log.Warn("subscription dropped, reconnecting",
			logger.String("key", h.key.String()),
			logger.Int("attempt", failures),
			logger.Duration("backoff", delay),
			logger.Error(err))
		h.setStatus(Reconnecting, err)

		timer := time.NewTimer(delay)
		select {
		case <-h.ctx.Done():
			timer.Stop()
			h.setStatus(Closed, nil)
			return
		case <-timer.C:
		}
	}
}

// attempt subscribes once and consumes the stream until it fails.
// A successful subscribe or delivery resets failures.
func (h *Handle) attempt(failures *int) error {
	stream, err := h.m.transport.Subscribe(h.ctx, h.key.UserID, h.key.Table)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			h.m.log.Debug("failed to close stream", logger.String("key", h.key.String()), logger.Error(cerr))
		}
	}()

	*failures = 0
	h.setStatus(Subscribed, nil)
	h.m.log.Info("subscribed", logger.String("key", h.key.String()))

	for {
		env, err := stream.Recv(h.ctx)
		if errors.Is(err, ErrMalformed) {
			h.m.reportError(&HandlerError{Key: h.key, Err: err})
			continue
		}
		if err != nil {
			return err
		}
		*failures = 0
		h.deliver(env)
	}
}

func (h *Handle) deliver(env changefeed.Envelope) {
	ev, err := changefeed.Decode(env)
	if err != nil {
		h.m.reportError(&HandlerError{Key: h.key, Err: err})
		return
	}

	h.mu.Lock()
	listeners := append([]listenerEntry(nil), h.listeners...)
	h.mu.Unlock()

	for _, l := range listeners {
		if h.ctx.Err() != nil {
			return
		}
		if err := safeCall(l.fn, ev); err != nil {
			h.m.reportError(&HandlerError{Key: h.key, Err: err})
		}
	}
}

func safeCall(fn Listener, ev changefeed.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return fn(ev)
}

func (h *Handle) fail(err error, attempts int) {
	failure := &SubscriptionFailedError{Key: h.key, Attempts: attempts, Err: err}

	h.mu.Lock()
	h.err = failure
	h.mu.Unlock()

	h.m.log.Error("subscription failed", logger.String("key", h.key.String()), logger.Int("attempts", attempts), logger.Error(err))
	h.setStatus(Failed, failure)
	h.m.forget(h)
	h.m.reportError(failure)
}

func (h *Handle) setStatus(s Status, err error) {
	h.mu.Lock()
	if h.status == s && s != Reconnecting {
		h.mu.Unlock()
		return
	}
	h.status = s
	h.mu.Unlock()

	if h.m.opts.OnStatus != nil {
		h.m.opts.OnStatus(h.key, s, err)
	}
}
