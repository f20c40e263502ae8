// Package ws implements the change-feed transport over a websocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MrSnakeDoc/shelf/internal/changefeed"
	"github.com/MrSnakeDoc/shelf/internal/client/subscription"
)

// DefaultReadTimeout is how long a stream may stay silent (no event, no ping)
// before it is considered timed out.
const DefaultReadTimeout = 60 * time.Second

// Transport opens one websocket per subscription against /api/realtime.
type Transport struct {
	endpoint    *url.URL
	token       string
	dialer      *websocket.Dialer
	readTimeout time.Duration
}

// New creates a Transport for serverURL (http or https).
func New(serverURL, token string, readTimeout time.Duration) (*Transport, error) {
	u, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u = u.JoinPath("/api/realtime")

	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	return &Transport{
		endpoint: u,
		token:    token,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		readTimeout: readTimeout,
	}, nil
}

// Subscribe dials the feed for one owner and table.
func (t *Transport) Subscribe(ctx context.Context, userID string, table changefeed.Table) (subscription.Stream, error) {
	u := *t.endpoint
	q := u.Query()
	q.Set("user_id", userID)
	q.Set("table", string(table))
	u.RawQuery = q.Encode()

	header := http.Header{}
	if t.token != "" {
		header.Set("Authorization", "Bearer "+t.token)
	}

	conn, resp, err := t.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: dial %s: %v (http %d)", subscription.ErrChannel, table, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: dial %s: %v", subscription.ErrChannel, table, err)
	}

	s := &stream{
		conn:        conn,
		readTimeout: t.readTimeout,
		done:        make(chan struct{}),
	}

	_ = conn.SetReadDeadline(time.Now().Add(t.readTimeout))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil
		}
		return err
	})

	// unblock a pending read when the subscription is cancelled
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()

	return s, nil
}

type stream struct {
	conn        *websocket.Conn
	readTimeout time.Duration
	done        chan struct{}
	once        sync.Once
}

func (s *stream) Recv(ctx context.Context) (changefeed.Envelope, error) {
	_, raw, err := s.conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return changefeed.Envelope{}, ctx.Err()
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return changefeed.Envelope{}, fmt.Errorf("%w: %v", subscription.ErrTimedOut, err)
		}
		return changefeed.Envelope{}, fmt.Errorf("%w: %v", subscription.ErrChannel, err)
	}
	_ = s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))

	var env changefeed.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return changefeed.Envelope{}, fmt.Errorf("%w: %v", subscription.ErrMalformed, err)
	}
	return env, nil
}

func (s *stream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}
