package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerRealtime) }

func registerRealtime(r chi.Router, d deps.Deps) {
	r.Get("/realtime", handlers.Realtime(d))
}
