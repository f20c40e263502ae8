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

type favoriteRequest struct {
	IsFavorite *bool `json:"is_favorite"`
}

func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := d.Repo.ListBookmarks(r.Context(), mw.UserID(r.Context()))
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner := mw.UserID(ctx)

		in, err := bookmarkInput(r)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}

		b, err := d.Repo.CreateBookmark(ctx, owner, in)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}

		d.Logger.Info("bookmark created",
			logger.String("user_id", owner),
			logger.String("id", b.ID))
		publish(ctx, d, owner, insertEnvelope(d, changefeed.Bookmarks, b)...)
		writeJSON(w, http.StatusCreated, b)
	}
}

func UpdateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner := mw.UserID(ctx)

		in, err := bookmarkInput(r)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}

		b, err := d.Repo.UpdateBookmark(ctx, owner, chi.URLParam(r, "id"), in)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}

		publish(ctx, d, owner, updateEnvelope(d, changefeed.Bookmarks, b)...)
		writeJSON(w, http.StatusOK, b)
	}
}

func SetFavorite(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner := mw.UserID(ctx)

		var body favoriteRequest
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		if body.IsFavorite == nil {
			writeError(w, d.Logger, domain.ValidationError{Field: "is_favorite", Message: "is_favorite is required."})
			return
		}

		b, err := d.Repo.SetFavorite(ctx, owner, chi.URLParam(r, "id"), *body.IsFavorite)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}

		publish(ctx, d, owner, updateEnvelope(d, changefeed.Bookmarks, b)...)
		writeJSON(w, http.StatusOK, b)
	}
}

func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner := mw.UserID(ctx)
		id := chi.URLParam(r, "id")

		if err := d.Repo.DeleteBookmark(ctx, owner, id); err != nil {
			writeError(w, d.Logger, err)
			return
		}

		d.Logger.Info("bookmark deleted",
			logger.String("user_id", owner),
			logger.String("id", id))
		publish(ctx, d, owner, changefeed.NewDelete(changefeed.Bookmarks, id, d.Now()))
		w.WriteHeader(http.StatusNoContent)
	}
}

// bookmarkInput decodes, normalizes and validates a request body.
func bookmarkInput(r *http.Request) (domain.BookmarkInput, error) {
	var in domain.BookmarkInput
	if err := decodeJSON(r, &in); err != nil {
		return in, err
	}

	in.URL = strings.TrimSpace(in.URL)
	in.Title = strings.TrimSpace(in.Title)
	if in.Description != nil {
		in.Description = domain.StringPtr(strings.TrimSpace(*in.Description))
	}
	if in.CollectionID != nil {
		in.CollectionID = domain.StringPtr(strings.TrimSpace(*in.CollectionID))
	}

	return in, in.Validate()
}
