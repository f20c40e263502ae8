package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patrickmn/go-cache"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/shelf/internal/config"
	"github.com/MrSnakeDoc/shelf/internal/feed"
	redisfeed "github.com/MrSnakeDoc/shelf/internal/feed/redis"
	"github.com/MrSnakeDoc/shelf/internal/httpserver"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/redis"
	"github.com/MrSnakeDoc/shelf/internal/store"
	"github.com/MrSnakeDoc/shelf/internal/store/memory"
	"github.com/MrSnakeDoc/shelf/internal/store/postgres"
	"github.com/MrSnakeDoc/shelf/internal/utils"
	"github.com/MrSnakeDoc/shelf/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	repo        store.Repository
	broker      feed.Broker
	redisClient *goredis.Client
}

// New loads configuration and connects every backend. Any failure is
// returned; nothing is started yet.
func New() (*App, error) {
	// Ctrl-C during startup aborts the redis retry loop.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	loggerClient := logger.NewWithFile(cfg.LogLevel, cfg.PrettyLog, cfg.LogFile)
	loggerClient.Debugf("cfg: %+v", cfg.Redacted())

	repo, err := openStore(cfg, loggerClient)
	if err != nil {
		return nil, err
	}

	broker, redisClient, err := openBroker(ctx, cfg, loggerClient)
	if err != nil {
		utils.MustClose(repo, loggerClient, "store")
		return nil, err
	}

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		Repo:           repo,
		StoreDriver:    cfg.StoreDriver,
		Broker:         broker,
		BrokerDriver:   cfg.BrokerDriver,
		RedisClient:    redisClient,
		JWTSecret:      []byte(cfg.JWTSecret),
		Idempotency:    cache.New(cfg.IdempotencyTTL, 2*cfg.IdempotencyTTL),
		RequestTimeout: cfg.RequestTimeout,
		PingInterval:   cfg.PingInterval,
		RateBurst:      cfg.RateLimitBurst,
		RatePerMin:     cfg.RateLimitRefillPerMin,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		repo:        repo,
		broker:      broker,
		redisClient: redisClient,
	}, nil
}

func openStore(cfg *config.Config, log logger.Logger) (store.Repository, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		log.Info("connecting to postgres")
		repo, err := postgres.Open(cfg.DatabaseDSN, log)
		if err != nil {
			return nil, err
		}
		log.Info("postgres initialized successfully")
		return repo, nil
	default:
		log.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil
	}
}

func openBroker(ctx context.Context, cfg *config.Config, log logger.Logger) (feed.Broker, *goredis.Client, error) {
	if cfg.BrokerDriver != config.BrokerRedis {
		log.Info("using in-process change feed")
		return feed.NewMemoryBroker(log), nil, nil
	}

	// Initialize Redis early - fail fast if unavailable
	log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	client, err := redis.New(ctx, redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info("Redis initialized successfully")

	return redisfeed.NewBroker(client, log), client, nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting shelf %s on %s", version.String(), a.cfg.ListenPort)
	a.logger.Info("backends",
		logger.String("store", a.cfg.StoreDriver),
		logger.String("broker", a.cfg.BrokerDriver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.close()
	a.logger.Info("✅ shelf stopped cleanly")
	_ = a.logger.Sync()
	return nil
}

// close releases backends in reverse order of creation.
func (a *App) close() {
	utils.MustClose(a.broker, a.logger, "broker")
	if a.redisClient != nil {
		utils.MustClose(a.redisClient, a.logger, "redis")
	}
	utils.MustClose(a.repo, a.logger, "store")
}
