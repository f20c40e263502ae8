package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/changefeed"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/mw"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

func ListCollections(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := d.Repo.ListCollections(r.Context(), mw.UserID(r.Context()))
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func CreateCollection(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner := mw.UserID(ctx)

		in, err := collectionInput(r)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}

		c, err := d.Repo.CreateCollection(ctx, owner, in)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}

		d.Logger.Info("collection created",
			logger.String("user_id", owner),
			logger.String("id", c.ID))
		publish(ctx, d, owner, insertEnvelope(d, changefeed.Collections, c)...)
		writeJSON(w, http.StatusCreated, c)
	}
}

func UpdateCollection(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner := mw.UserID(ctx)

		in, err := collectionInput(r)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}

		c, err := d.Repo.UpdateCollection(ctx, owner, chi.URLParam(r, "id"), in)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}

		publish(ctx, d, owner, updateEnvelope(d, changefeed.Collections, c)...)
		writeJSON(w, http.StatusOK, c)
	}
}

// DeleteCollection publishes an UPDATE for every bookmark it detached,
// then the collection DELETE.
func DeleteCollection(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner := mw.UserID(ctx)
		id := chi.URLParam(r, "id")

		detached, err := d.Repo.DeleteCollection(ctx, owner, id)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}

		d.Logger.Info("collection deleted",
			logger.String("user_id", owner),
			logger.String("id", id),
			logger.Int("detached", len(detached)))

		envs := make([]changefeed.Envelope, 0, len(detached))
		for _, b := range detached {
			envs = append(envs, updateEnvelope(d, changefeed.Bookmarks, b)...)
		}
		publish(ctx, d, owner, envs...)
		publish(ctx, d, owner, changefeed.NewDelete(changefeed.Collections, id, d.Now()))

		w.WriteHeader(http.StatusNoContent)
	}
}

func collectionInput(r *http.Request) (domain.CollectionInput, error) {
	var in domain.CollectionInput
	if err := decodeJSON(r, &in); err != nil {
		return in, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)
	in.Icon = strings.TrimSpace(in.Icon)

	return in, in.Validate()
}
