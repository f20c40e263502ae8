// Package session wires the entity store, reconciler, subscriptions and
// mutation gateway for one signed-in user.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/changefeed"
	"github.com/MrSnakeDoc/shelf/internal/client/entitystore"
	"github.com/MrSnakeDoc/shelf/internal/client/gateway"
	"github.com/MrSnakeDoc/shelf/internal/client/reconcile"
	"github.com/MrSnakeDoc/shelf/internal/client/subscription"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/scheduler"
)

// Remote is everything a session needs from the remote store.
type Remote interface {
	gateway.Remote
	scheduler.SnapshotSource
}

// Config holds session dependencies.
type Config struct {
	UserID         string
	Remote         Remote
	Transport      subscription.Transport
	Notifier       gateway.Notifier
	Logger         logger.Logger
	Subscription   subscription.Options
	ResyncInterval time.Duration
}

// Session is one user's live view of their bookmarks.
type Session struct {
	userID     string
	store      *entitystore.Store
	reconciler *reconcile.Reconciler
	subs       *subscription.Manager
	gateway    *gateway.Gateway
	resync     *scheduler.Resyncer
	trigger    chan struct{}
	notifier   gateway.Notifier
	log        logger.Logger
	active     atomic.Bool

	mu        sync.Mutex
	listening map[*subscription.Handle]func()

	statusMu sync.Mutex
	dropped  map[subscription.Key]bool
}

var tables = []changefeed.Table{changefeed.Bookmarks, changefeed.Collections}

// New builds a session. Nothing touches the network until Start.
func New(cfg Config) (*Session, error) {
	if cfg.UserID == "" {
		return nil, errors.New("session requires a user id")
	}
	if cfg.Remote == nil || cfg.Transport == nil {
		return nil, errors.New("session requires a remote and a transport")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	s := &Session{
		userID:    cfg.UserID,
		store:     entitystore.NewStore(),
		trigger:   make(chan struct{}, 1),
		notifier:  cfg.Notifier,
		log:       log,
		listening: make(map[*subscription.Handle]func()),
		dropped:   make(map[subscription.Key]bool),
	}

	s.reconciler = reconcile.New(s.store, log)

	subOpts := cfg.Subscription
	subOpts.Logger = log
	userOnError := subOpts.OnError
	subOpts.OnError = func(err error) {
		s.onSubscriptionError(err)
		if userOnError != nil {
			userOnError(err)
		}
	}
	userOnStatus := subOpts.OnStatus
	subOpts.OnStatus = func(key subscription.Key, status subscription.Status, err error) {
		s.onStatus(key, status)
		if userOnStatus != nil {
			userOnStatus(key, status, err)
		}
	}
	s.subs = subscription.NewManager(cfg.Transport, subOpts)

	s.gateway = gateway.New(cfg.Remote, s.store, cfg.UserID,
		gateway.WithActive(s.active.Load),
		gateway.WithNotifier(cfg.Notifier),
		gateway.WithLogger(log),
	)

	s.resync = scheduler.NewResyncer(cfg.Remote, s.store, cfg.UserID, log, cfg.ResyncInterval, s.trigger)
	s.resync.SetPrepare(func(context.Context) { s.openFeeds() })

	return s, nil
}

// Start subscribes to both tables and loads the initial snapshot.
func (s *Session) Start(ctx context.Context) error {
	s.active.Store(true)
	if err := s.resync.Start(ctx); err != nil {
		s.Close()
		return err
	}
	return nil
}

// Close stops live updates and discards results of in-flight requests.
func (s *Session) Close() {
	if !s.active.Swap(false) {
		return
	}
	s.resync.Stop()
	s.subs.Close()

	s.mu.Lock()
	for h, cancel := range s.listening {
		cancel()
		delete(s.listening, h)
	}
	s.mu.Unlock()
}

// Refresh reopens failed subscriptions and reloads the snapshot in the background.
func (s *Session) Refresh() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Store exposes the entity store for reads and filter changes.
func (s *Session) Store() *entitystore.Store { return s.store }

// Gateway exposes mutations.
func (s *Session) Gateway() *gateway.Gateway { return s.gateway }

// UserID returns the session owner.
func (s *Session) UserID() string { return s.userID }

// Active reports whether the session is started and not closed.
func (s *Session) Active() bool { return s.active.Load() }

// Live reports how many subscriptions are currently open.
func (s *Session) Live() int { return s.subs.Active() }

func (s *Session) openFeeds() {
	if !s.active.Load() {
		return
	}
	for _, table := range tables {
		h, err := s.subs.Open(s.userID, table)
		if err != nil {
			s.log.Warn("failed to open subscription", logger.String("table", string(table)), logger.Error(err))
			continue
		}

		s.mu.Lock()
		if _, ok := s.listening[h]; !ok {
			s.listening[h] = h.Listen(s.apply)
		}
		s.mu.Unlock()
	}
}

func (s *Session) apply(ev changefeed.Event) error {
	if !s.active.Load() {
		return nil
	}
	return s.reconciler.Apply(ev)
}

// onStatus reloads the snapshot once a dropped subscription is back, since
// changes made while it was down were never delivered. Reconnects are not
// reported to the user; only a terminal failure is.
func (s *Session) onStatus(key subscription.Key, status subscription.Status) {
	s.statusMu.Lock()
	recovered := false
	switch status {
	case subscription.Reconnecting:
		s.dropped[key] = true
	case subscription.Subscribed:
		recovered = s.dropped[key]
		delete(s.dropped, key)
	case subscription.Failed, subscription.Closed:
		delete(s.dropped, key)
	}
	s.statusMu.Unlock()

	if recovered && s.active.Load() {
		s.log.Info("subscription recovered, reloading snapshot", logger.String("key", key.String()))
		s.Refresh()
	}
}

func (s *Session) onSubscriptionError(err error) {
	var failed *subscription.SubscriptionFailedError
	if errors.As(err, &failed) {
		s.mu.Lock()
		for h, cancel := range s.listening {
			if h.Key() == failed.Key {
				cancel()
				delete(s.listening, h)
			}
		}
		s.mu.Unlock()

		if s.notifier != nil && s.active.Load() {
			s.notifier.Notify(gateway.Notice{
				Level:   gateway.LevelError,
				Message: "Live updates for " + string(failed.Key.Table) + " are unavailable. They will resume on the next refresh.",
			})
		}
		return
	}
	s.log.Warn("failed to apply change", logger.Error(err))
}
