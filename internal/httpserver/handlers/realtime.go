package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MrSnakeDoc/shelf/internal/changefeed"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/mw"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	maxInboundSize = 4 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// auth is by bearer header; origin is not checked
	CheckOrigin: func(*http.Request) bool { return true },
}

// Realtime streams change envelopes for one owner and table as text
// frames until the client goes away or the broker ends the subscription.
func Realtime(d deps.Deps) http.HandlerFunc {
	ping := d.PingInterval
	if ping <= 0 {
		ping = 20 * time.Second
	}

	return func(w http.ResponseWriter, r *http.Request) {
		owner := mw.UserID(r.Context())
		table := changefeed.Table(r.URL.Query().Get("table"))
		if !table.Valid() {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown table", Code: "bad_request"})
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sub, err := d.Broker.Subscribe(ctx, owner, table)
		if err != nil {
			d.Logger.Error("failed to subscribe change feed",
				logger.String("user_id", owner),
				logger.String("table", string(table)),
				logger.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "change feed unavailable", Code: "unavailable"})
			return
		}
		defer utils.Close(sub)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already replied to the client.
			d.Logger.Debug("websocket upgrade failed", logger.Error(err))
			return
		}
		defer utils.Close(conn)

		d.Logger.Info("realtime subscriber connected",
			logger.String("user_id", owner),
			logger.String("table", string(table)))

		go readPump(conn, cancel)
		writePump(ctx, conn, sub.C(), ping, d.Logger)

		d.Logger.Info("realtime subscriber disconnected",
			logger.String("user_id", owner),
			logger.String("table", string(table)))
	}
}

// readPump consumes control frames and cancels ctx when the peer leaves.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(maxInboundSize)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(ctx context.Context, conn *websocket.Conn, envs <-chan changefeed.Envelope, ping time.Duration, log logger.Logger) {
	ticker := time.NewTicker(ping)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return

		case env, ok := <-envs:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "change feed closed"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				log.Debug("realtime write failed", logger.Error(err))
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug("realtime ping failed", logger.Error(err))
				return
			}
		}
	}
}
