package deps

import (
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/shelf/internal/feed"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/store"
)

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time // for testing, defaults to time.Now
	AllowedHosts   []string         // Host headers allowed to access the server
	AllowedCIDRS   []string         // IPs allowed to access readyz/infra endpoints
	TrustProxy     bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	Repo           store.Repository // Owner-scoped bookmark and collection rows
	StoreDriver    string           // "postgres" | "memory", reported by /infra
	Broker         feed.Broker      // Change feed fan-out
	BrokerDriver   string           // "redis" | "memory", reported by /infra
	RedisClient    *redis.Client    // Redis client connection (nil with the memory broker)
	JWTSecret      []byte           // HS256 signing secret
	Idempotency    *cache.Cache     // Replayed POST responses keyed by owner and Idempotency-Key
	RequestTimeout time.Duration    // Per-request timeout for REST routes
	PingInterval   time.Duration    // Websocket keepalive
	RateBurst      int              // Requests allowed in a burst per client IP
	RatePerMin     int              // Tokens refilled per client IP per minute
}

// Now returns d.TimeNow() or time.Now() when unset.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
