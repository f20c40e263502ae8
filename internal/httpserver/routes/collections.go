package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerCollections) }

func registerCollections(r chi.Router, d deps.Deps) {
	r.With(rest(d)...).Route("/collections", func(r chi.Router) {
		r.Get("/", handlers.ListCollections(d))
		r.Post("/", handlers.CreateCollection(d))
		r.Put("/{id}", handlers.UpdateCollection(d))
		r.Delete("/{id}", handlers.DeleteCollection(d))
	})
}
