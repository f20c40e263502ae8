package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/auth"
)

// ClientConfig configures shelfctl's sync session.
type ClientConfig struct {
	ServerURL      string        `yaml:"server_url"`
	Token          string        `yaml:"token"`
	UserID         string        `yaml:"user_id"` // derived from the token subject when empty
	RequestTimeout time.Duration `yaml:"request_timeout"`
	BackoffUnit    time.Duration `yaml:"backoff_unit"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	MaxAttempts    int           `yaml:"max_attempts"`
	ResyncInterval time.Duration `yaml:"resync_interval"`
	LogLevel       string        `yaml:"log_level"`
	LogFile        string        `yaml:"log_file"`
}

func clientDefaults() *ClientConfig {
	return &ClientConfig{
		ServerURL:      "http://localhost:8080",
		RequestTimeout: 10 * time.Second,
		BackoffUnit:    time.Second,
		MaxBackoff:     30 * time.Second,
		MaxAttempts:    5,
		ResyncInterval: 5 * time.Minute,
		LogLevel:       "warn",
	}
}

// LoadClient reads the optional YAML file named by SHELF_CLIENT_CONFIG,
// then SHELF_* variables. Validation is left to Validate so command-line
// flags can be applied first.
func LoadClient() (*ClientConfig, error) {
	cfg := clientDefaults()

	if path := os.Getenv("SHELF_CLIENT_CONFIG"); path != "" {
		if err := readFile(path, cfg); err != nil {
			return nil, err
		}
	}

	e := &env{}
	e.str("SHELF_SERVER_URL", &cfg.ServerURL)
	e.str("SHELF_TOKEN", &cfg.Token)
	e.str("SHELF_USER_ID", &cfg.UserID)
	e.duration("SHELF_REQUEST_TIMEOUT", &cfg.RequestTimeout)
	e.duration("SHELF_BACKOFF_UNIT", &cfg.BackoffUnit)
	e.duration("SHELF_MAX_BACKOFF", &cfg.MaxBackoff)
	e.integer("SHELF_MAX_ATTEMPTS", &cfg.MaxAttempts)
	e.duration("SHELF_RESYNC_INTERVAL", &cfg.ResyncInterval)
	e.str("SHELF_LOG_LEVEL", &cfg.LogLevel)
	e.str("SHELF_LOG_FILE", &cfg.LogFile)

	if len(e.errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(e.errs...))
	}
	return cfg, nil
}

// Validate checks the final values and fills UserID from the token.
func (c *ClientConfig) Validate() error {
	var errs []error

	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("server url must be an http(s) URL, got %q", c.ServerURL))
	}

	if c.Token == "" {
		errs = append(errs, errors.New("token is required (SHELF_TOKEN or --token)"))
	} else if c.UserID == "" {
		sub, err := auth.Subject(c.Token)
		if err != nil {
			errs = append(errs, fmt.Errorf("cannot derive user id from token: %w", err))
		} else {
			c.UserID = sub
		}
	}

	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be > 0"))
	}
	if c.BackoffUnit <= 0 {
		errs = append(errs, errors.New("backoff unit must be > 0"))
	}
	if c.MaxBackoff < c.BackoffUnit {
		errs = append(errs, errors.New("max backoff must be >= backoff unit"))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, errors.New("max attempts must be >= 1"))
	}
	if c.ResyncInterval < 0 {
		errs = append(errs, errors.New("resync interval must be >= 0"))
	}

	return errors.Join(errs...)
}
