package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
)

type componentStatus struct {
	OK     bool   `json:"ok"`
	Driver string `json:"driver,omitempty"`
	Mode   string `json:"mode,omitempty"`
	Impact string `json:"impact,omitempty"`
	Error  string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Uptime     string                     `json:"uptime"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		components := map[string]componentStatus{
			"store":  checkStore(ctx, d),
			"broker": checkBroker(ctx, d),
		}
		if d.RedisClient != nil {
			components["redis"] = checkRedis(ctx, d)
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Uptime:     d.Now().Sub(d.StartTime).Round(time.Second).String(),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	// No store = nothing works
	if store, exists := components["store"]; exists && !store.OK {
		return "critical"
	}

	// Broker down = CRUD works, live updates do not
	if broker, exists := components["broker"]; exists && !broker.OK {
		return "degraded"
	}

	return "operational"
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	if err := d.Repo.Ping(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Driver: d.StoreDriver,
			Impact: "reads-and-writes-failing",
			Error:  err.Error(),
		}
	}
	return componentStatus{OK: true, Driver: d.StoreDriver}
}

func checkBroker(ctx context.Context, d deps.Deps) componentStatus {
	if err := d.Broker.Ping(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Driver: d.BrokerDriver,
			Mode:   "degraded",
			Impact: "realtime-disabled",
			Error:  err.Error(),
		}
	}
	return componentStatus{OK: true, Driver: d.BrokerDriver, Mode: "realtime"}
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "cross-instance-fanout-disabled",
			Error:  "timeout",
		}
	}
	return componentStatus{
		OK:     true,
		Mode:   "optimal",
		Impact: "cross-instance-fanout-enabled",
	}
}
