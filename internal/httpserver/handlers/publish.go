package handlers

import (
	"context"

	"github.com/MrSnakeDoc/shelf/internal/changefeed"
	"github.com/MrSnakeDoc/shelf/internal/feed"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// publish broadcasts committed changes. The rows are already stored, so a
// broker failure is logged and the request still succeeds; subscribers
// re-converge on their next resync.
func publish(ctx context.Context, d deps.Deps, owner string, envs ...changefeed.Envelope) {
	if d.Broker == nil || len(envs) == 0 {
		return
	}
	if err := feed.PublishAll(ctx, d.Broker, owner, envs...); err != nil {
		d.Logger.Warn("failed to publish change",
			logger.String("user_id", owner),
			logger.String("table", string(envs[0].Table)),
			logger.Error(err))
	}
}

func insertEnvelope(d deps.Deps, table changefeed.Table, row interface{}) []changefeed.Envelope {
	env, err := changefeed.NewInsert(table, row, d.Now())
	if err != nil {
		d.Logger.Error("failed to encode insert", logger.Error(err))
		return nil
	}
	return []changefeed.Envelope{env}
}

func updateEnvelope(d deps.Deps, table changefeed.Table, row interface{}) []changefeed.Envelope {
	env, err := changefeed.NewUpdate(table, row, d.Now())
	if err != nil {
		d.Logger.Error("failed to encode update", logger.Error(err))
		return nil
	}
	return []changefeed.Envelope{env}
}
