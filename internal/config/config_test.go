package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/auth"
)

const testSecret = "0123456789abcdef-secret"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SHELF_JWT_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ListenPort != ":8080" {
		t.Errorf("ListenPort = %q", cfg.ListenPort)
	}
	if cfg.StoreDriver != StoreMemory || cfg.BrokerDriver != BrokerMemory {
		t.Errorf("drivers = %q/%q", cfg.StoreDriver, cfg.BrokerDriver)
	}
	if cfg.PingInterval != 20*time.Second {
		t.Errorf("PingInterval = %v", cfg.PingInterval)
	}
}

func TestLoadCollectsEveryError(t *testing.T) {
	t.Setenv("SHELF_JWT_SECRET", "short")
	t.Setenv("SHELF_STORE", "postgres")
	t.Setenv("SHELF_BROKER", "kafka")
	t.Setenv("SHELF_REDIS_DB", "zero")
	t.Setenv("SHELF_SHUTDOWN_TIMEOUT", "soon")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error")
	}

	for _, want := range []string{
		"SHELF_JWT_SECRET",
		"SHELF_DATABASE_DSN",
		"SHELF_BROKER",
		"SHELF_REDIS_DB",
		"SHELF_SHUTDOWN_TIMEOUT",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %s: %v", want, err)
		}
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shelf.yaml")
	body := `
listen_port: ":9090"
store_driver: postgres
database_dsn: postgres://localhost/shelf
broker_driver: redis
redis_addr: localhost:6379
redis_connect_timeout: 45s
jwt_secret: file-secret-0123456789
allowed_hosts: [shelf.example.com]
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SHELF_CONFIG_FILE", path)
	t.Setenv("SHELF_LISTEN_PORT", ":7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ListenPort != ":7070" {
		t.Errorf("env should override file, got %q", cfg.ListenPort)
	}
	if cfg.StoreDriver != StorePostgres || cfg.BrokerDriver != BrokerRedis {
		t.Errorf("drivers = %q/%q", cfg.StoreDriver, cfg.BrokerDriver)
	}
	if cfg.RedisConnectTimeout != 45*time.Second {
		t.Errorf("RedisConnectTimeout = %v", cfg.RedisConnectTimeout)
	}
	if !reflect.DeepEqual(cfg.AllowedHosts, []string{"shelf.example.com"}) {
		t.Errorf("AllowedHosts = %v", cfg.AllowedHosts)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("SHELF_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestRedacted(t *testing.T) {
	cfg := Config{JWTSecret: "s", RedisPassword: "p", DatabaseDSN: "d", ListenPort: ":1"}
	r := cfg.Redacted()
	if r.JWTSecret == "s" || r.RedisPassword == "p" || r.DatabaseDSN == "d" {
		t.Errorf("secrets not redacted: %+v", r)
	}
	if r.ListenPort != ":1" || cfg.JWTSecret != "s" {
		t.Error("Redacted must copy")
	}
}

func TestEnvHelpers(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "valid", value: "5s"},
		{name: "invalid", value: "five", wantErr: true},
		{name: "unset", value: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			e := &env{}
			d := time.Second
			e.duration("TEST_DURATION", &d)

			if got := len(e.errs) > 0; got != tt.wantErr {
				t.Errorf("errs = %v, wantErr %v", e.errs, tt.wantErr)
			}
			if tt.value == "5s" && d != 5*time.Second {
				t.Errorf("duration = %v", d)
			}
			if tt.value != "5s" && d != time.Second {
				t.Errorf("default overwritten: %v", d)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a, b ,c", []string{"a", "b", "c"}},
		{`"10.0.0.0/8", '127.0.0.1'`, []string{"10.0.0.0/8", "127.0.0.1"}},
		{" , ,", []string{}},
	}
	for _, tt := range tests {
		got := splitAndTrim(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitAndTrim(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestClientValidateDerivesUser(t *testing.T) {
	tok, err := auth.Issue([]byte(testSecret), "user-42", 0, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	t.Setenv("SHELF_TOKEN", tok)
	t.Setenv("SHELF_SERVER_URL", "https://shelf.example.com")

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.UserID != "user-42" {
		t.Errorf("UserID = %q", cfg.UserID)
	}
	if cfg.MaxAttempts != 5 || cfg.BackoffUnit != time.Second {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestClientValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*ClientConfig)
	}{
		{"no token", func(c *ClientConfig) { c.Token = "" }},
		{"bad token", func(c *ClientConfig) { c.Token = "garbage" }},
		{"ftp url", func(c *ClientConfig) { c.ServerURL = "ftp://x" }},
		{"zero attempts", func(c *ClientConfig) { c.MaxAttempts = 0 }},
		{"cap below unit", func(c *ClientConfig) { c.MaxBackoff = time.Millisecond }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := clientDefaults()
			cfg.Token = "x"
			cfg.UserID = "u"
			tt.mod(cfg)
			if tt.name == "bad token" {
				cfg.UserID = ""
			}
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}
}

func TestLoadClientBadEnv(t *testing.T) {
	t.Setenv("SHELF_MAX_ATTEMPTS", "many")
	_, err := LoadClient()
	if err == nil {
		t.Fatal("LoadClient() expected error")
	}
	if errors.Unwrap(err) == nil {
		t.Errorf("error should wrap the joined causes: %v", err)
	}
}
