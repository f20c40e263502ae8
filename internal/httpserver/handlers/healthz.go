package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
)

type buildInfo struct {
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
}

type healthzResponse struct {
	Status        string    `json:"status"`
	Service       string    `json:"service"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Store         string    `json:"store,omitempty"`
	Broker        string    `json:"broker,omitempty"`
	Build         buildInfo `json:"build"`
}

// Healthz is liveness only. It reports the configured drivers without
// touching them; /readyz does that.
func Healthz(d deps.Deps) http.HandlerFunc {
	build := buildInfo{
		Version:   d.Version,
		Commit:    d.Commit,
		BuildDate: d.BuildDate,
		GoVersion: d.GoVersion,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthzResponse{
			Status:        "ok",
			Service:       "shelf",
			UptimeSeconds: d.Now().Sub(d.StartTime).Seconds(),
			Store:         d.StoreDriver,
			Broker:        d.BrokerDriver,
			Build:         build,
		})
	}
}
