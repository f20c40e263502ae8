package mw

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/MrSnakeDoc/shelf/internal/logger"
)

func TestIdempotencyReplaysSuccess(t *testing.T) {
	c := cache.New(time.Minute, time.Minute)
	calls := 0
	h := Idempotency(c, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"n":%d}`, calls)
	}))

	do := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/bookmarks", nil)
		req = req.WithContext(WithUserID(req.Context(), "u1"))
		if key != "" {
			req.Header.Set(IdempotencyHeader, key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := do("k1")
	second := do("k1")
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Errorf("replay = %d %q, want %d %q", second.Code, second.Body.String(), first.Code, first.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("replay header missing")
	}

	do("k2")
	do("")
	if calls != 3 {
		t.Errorf("handler ran %d times, want 3", calls)
	}
}

func TestIdempotencyForgetsFailures(t *testing.T) {
	c := cache.New(time.Minute, time.Minute)
	calls := 0
	h := Idempotency(c, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/collections", nil)
		req.Header.Set(IdempotencyHeader, "same")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Errorf("failed request should not be replayed, handler ran %d times", calls)
	}
}

func TestIdempotencyScopesByOwner(t *testing.T) {
	c := cache.New(time.Minute, time.Minute)
	calls := 0
	h := Idempotency(c, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for _, owner := range []string{"u1", "u2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/bookmarks", nil)
		req = req.WithContext(WithUserID(req.Context(), owner))
		req.Header.Set(IdempotencyHeader, "same")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Errorf("handler ran %d times, want 2", calls)
	}
}
