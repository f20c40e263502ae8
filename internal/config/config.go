package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/shelf/internal/auth"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	BrokerMemory = "memory"
	BrokerRedis  = "redis"
)

type Config struct {
	ListenPort      string        `yaml:"listen_port"`      // ex: ":8080"
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // ex: 5s
	RequestTimeout  time.Duration `yaml:"request_timeout"`  // per-request timeout for REST routes
	PingInterval    time.Duration `yaml:"ping_interval"`    // websocket keepalive

	LogLevel  string `yaml:"log_level"`  // "debug" | "info" | "warn" | "error"
	PrettyLog bool   `yaml:"pretty_log"` // true => zap dev (color), false => zap prod (JSON)
	LogFile   string `yaml:"log_file"`   // optional rotating JSON log

	StoreDriver string `yaml:"store_driver"` // "postgres" | "memory"
	DatabaseDSN string `yaml:"database_dsn"`

	BrokerDriver string `yaml:"broker_driver"` // "redis" | "memory"

	// Redis
	RedisAddr           string        `yaml:"redis_addr"` // ex: "localhost:6379"
	RedisUser           string        `yaml:"redis_username"`
	RedisPassword       string        `yaml:"redis_password"`
	RedisDB             int           `yaml:"redis_db"`
	RedisDT             time.Duration `yaml:"redis_dial_timeout"`
	RedisRT             time.Duration `yaml:"redis_read_timeout"`
	RedisWT             time.Duration `yaml:"redis_write_timeout"`
	RedisMaxWait        time.Duration `yaml:"redis_max_wait"`
	RedisPingTimeout    time.Duration `yaml:"redis_ping_timeout"`
	RedisPoolSize       int           `yaml:"redis_pool_size"`
	RedisConnectTimeout time.Duration `yaml:"redis_connect_timeout"`
	RedisRetryInterval  time.Duration `yaml:"redis_retry_interval"`
	RedisWarnThreshold  int           `yaml:"redis_warn_threshold"`

	JWTSecret string `yaml:"jwt_secret"`

	AllowedHosts []string `yaml:"allowed_hosts"` // optional, restrict access to specific Host headers
	AllowedCIDRS []string `yaml:"allowed_cidrs"` // optional, restrict infra endpoints to these IPs/CIDRs
	TrustProxy   bool     `yaml:"trust_proxy"`   // true => trust X-Forwarded-For headers

	RateLimitBurst        int           `yaml:"rate_limit_burst"`
	RateLimitRefillPerMin int           `yaml:"rate_limit_refill_per_min"`
	IdempotencyTTL        time.Duration `yaml:"idempotency_ttl"`
}

func defaults() *Config {
	return &Config{
		ListenPort:      ":8080",
		ShutdownTimeout: 5 * time.Second,
		RequestTimeout:  10 * time.Second,
		PingInterval:    20 * time.Second,

		LogLevel:  "info",
		PrettyLog: true,

		StoreDriver:  StoreMemory,
		BrokerDriver: BrokerMemory,

		RedisUser:           "default",
		RedisDT:             5 * time.Second,
		RedisRT:             3 * time.Second,
		RedisWT:             3 * time.Second,
		RedisMaxWait:        10 * time.Second,
		RedisPingTimeout:    5 * time.Second,
		RedisPoolSize:       10,
		RedisConnectTimeout: 30 * time.Second,
		RedisRetryInterval:  2 * time.Second,
		RedisWarnThreshold:  3,

		TrustProxy: false,

		RateLimitBurst:        60,
		RateLimitRefillPerMin: 120,
		IdempotencyTTL:        10 * time.Minute,
	}
}

// Load builds the server configuration from defaults, the optional YAML
// file named by SHELF_CONFIG_FILE, then SHELF_* variables. Every problem
// found is returned together.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("SHELF_CONFIG_FILE"); path != "" {
		if err := readFile(path, cfg); err != nil {
			return nil, err
		}
	}

	e := &env{}
	e.str("SHELF_LISTEN_PORT", &cfg.ListenPort)
	e.duration("SHELF_SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)
	e.duration("SHELF_REQUEST_TIMEOUT", &cfg.RequestTimeout)
	e.duration("SHELF_PING_INTERVAL", &cfg.PingInterval)

	e.str("SHELF_LOG_LEVEL", &cfg.LogLevel)
	e.boolean("SHELF_PRETTY_LOG", &cfg.PrettyLog)
	e.str("SHELF_LOG_FILE", &cfg.LogFile)

	e.str("SHELF_STORE", &cfg.StoreDriver)
	e.str("SHELF_DATABASE_DSN", &cfg.DatabaseDSN)
	e.str("SHELF_BROKER", &cfg.BrokerDriver)

	e.str("SHELF_REDIS_ADDR", &cfg.RedisAddr)
	e.str("SHELF_REDIS_USERNAME", &cfg.RedisUser)
	e.str("SHELF_REDIS_PASSWORD", &cfg.RedisPassword)
	e.integer("SHELF_REDIS_DB", &cfg.RedisDB)
	e.duration("SHELF_REDIS_DIAL_TIMEOUT", &cfg.RedisDT)
	e.duration("SHELF_REDIS_READ_TIMEOUT", &cfg.RedisRT)
	e.duration("SHELF_REDIS_WRITE_TIMEOUT", &cfg.RedisWT)
	e.duration("SHELF_REDIS_MAX_WAIT", &cfg.RedisMaxWait)
	e.duration("SHELF_REDIS_PING_TIMEOUT", &cfg.RedisPingTimeout)
	e.integer("SHELF_REDIS_POOL_SIZE", &cfg.RedisPoolSize)
	e.duration("SHELF_REDIS_CONNECT_TIMEOUT", &cfg.RedisConnectTimeout)
	e.duration("SHELF_REDIS_RETRY_INTERVAL", &cfg.RedisRetryInterval)
	e.integer("SHELF_REDIS_WARN_THRESHOLD", &cfg.RedisWarnThreshold)

	e.str("SHELF_JWT_SECRET", &cfg.JWTSecret)

	e.list("SHELF_ALLOWED_HOSTS", &cfg.AllowedHosts)
	e.list("SHELF_ALLOWED_CIDRS", &cfg.AllowedCIDRS)
	e.boolean("SHELF_TRUST_PROXY", &cfg.TrustProxy)

	e.integer("SHELF_RATE_LIMIT_BURST", &cfg.RateLimitBurst)
	e.integer("SHELF_RATE_LIMIT_REFILL_PER_MIN", &cfg.RateLimitRefillPerMin)
	e.duration("SHELF_IDEMPOTENCY_TTL", &cfg.IdempotencyTTL)

	errs := append(e.errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error

	if len(c.JWTSecret) < auth.MinSecretLength {
		errs = append(errs, fmt.Errorf("SHELF_JWT_SECRET must be at least %d bytes", auth.MinSecretLength))
	}

	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("SHELF_DATABASE_DSN is required when SHELF_STORE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("SHELF_STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.StoreDriver))
	}

	switch c.BrokerDriver {
	case BrokerMemory:
	case BrokerRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("SHELF_REDIS_ADDR is required when SHELF_BROKER=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("SHELF_BROKER must be %q or %q, got %q", BrokerRedis, BrokerMemory, c.BrokerDriver))
	}

	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHELF_SHUTDOWN_TIMEOUT must be > 0"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("SHELF_REQUEST_TIMEOUT must be > 0"))
	}
	if c.PingInterval <= 0 {
		errs = append(errs, errors.New("SHELF_PING_INTERVAL must be > 0"))
	}
	if c.IdempotencyTTL <= 0 {
		errs = append(errs, errors.New("SHELF_IDEMPOTENCY_TTL must be > 0"))
	}

	return errs
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.RedisPassword != "" {
		c.RedisPassword = "***REDACTED***"
	}
	if c.JWTSecret != "" {
		c.JWTSecret = "***REDACTED***"
	}
	if c.DatabaseDSN != "" {
		c.DatabaseDSN = "***REDACTED***"
	}
	return c
}

// ─────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────

func readFile(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// env overlays environment variables and records every malformed value.
type env struct {
	errs []error
}

func (e *env) str(key string, dst *string) {
	if v := getenv(key, ""); v != "" {
		*dst = v
	}
}

func (e *env) integer(key string, dst *int) {
	v := getenv(key, "")
	if v == "" {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid integer value for %s: %q", key, v))
		return
	}
	*dst = i
}

func (e *env) boolean(key string, dst *bool) {
	v := getenv(key, "")
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid boolean value for %s: %q", key, v))
		return
	}
	*dst = b
}

func (e *env) duration(key string, dst *time.Duration) {
	v := getenv(key, "")
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid duration value for %s: %q", key, v))
		return
	}
	*dst = d
}

func (e *env) list(key string, dst *[]string) {
	if v := getenv(key, ""); v != "" {
		*dst = splitAndTrim(v)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
