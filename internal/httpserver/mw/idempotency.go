package mw

import (
	"bytes"
	"net/http"
	"strings"
	"sync"

	"github.com/patrickmn/go-cache"

	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// IdempotencyHeader carries a client-chosen key on create requests.
const IdempotencyHeader = "Idempotency-Key"

const maxKeyLength = 128

type idemEntry struct {
	mu          sync.Mutex
	done        bool
	status      int
	contentType string
	body        []byte
}

// replayRecorder tees the response so a successful POST can be replayed.
type replayRecorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (rw *replayRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *replayRecorder) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	rw.buf.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Idempotency replays the stored response of a POST that already
// succeeded under the same owner and Idempotency-Key. A duplicate arriving
// while the first is still running gets 409. Requests without the header
// pass through.
func Idempotency(c *cache.Cache, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if r.Method != http.MethodPost || key == "" || c == nil {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxKeyLength {
				deny(w, http.StatusBadRequest, "bad_request", "Idempotency-Key too long")
				return
			}

			cacheKey := UserID(r.Context()) + ":" + r.URL.Path + ":" + key
			entry := &idemEntry{}
			entry.mu.Lock()

			if err := c.Add(cacheKey, entry, cache.DefaultExpiration); err != nil {
				entry.mu.Unlock()
				replay(w, c, cacheKey, log)
				return
			}

			rec := &replayRecorder{ResponseWriter: w}
			defer func() {
				if rec.status >= 200 && rec.status < 300 {
					entry.done = true
					entry.status = rec.status
					entry.contentType = rec.Header().Get("Content-Type")
					entry.body = rec.buf.Bytes()
				} else {
					c.Delete(cacheKey)
				}
				entry.mu.Unlock()
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

func replay(w http.ResponseWriter, c *cache.Cache, cacheKey string, log logger.Logger) {
	v, ok := c.Get(cacheKey)
	if !ok {
		deny(w, http.StatusConflict, "conflict", "request with this Idempotency-Key is in progress")
		return
	}
	entry := v.(*idemEntry)

	if !entry.mu.TryLock() {
		deny(w, http.StatusConflict, "conflict", "request with this Idempotency-Key is in progress")
		return
	}
	defer entry.mu.Unlock()

	if !entry.done {
		deny(w, http.StatusConflict, "conflict", "request with this Idempotency-Key is in progress")
		return
	}

	log.Debug("Idempotency: replaying stored response", logger.String("key", cacheKey))
	if entry.contentType != "" {
		w.Header().Set("Content-Type", entry.contentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(entry.status)
	_, _ = w.Write(entry.body)
}
