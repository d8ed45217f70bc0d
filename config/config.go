package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"posterminal/auth"
)

type Config struct {
	Port           string        `env:"PORT,default=1414"`
	Environment    string        `env:"APP_ENV,default=development"`
	LogLevel       string        `env:"LOG_LEVEL,default=info"`
	StoreDriver    string        `env:"STORE_DRIVER,default=memory"`
	MongoURI       string        `env:"MONGO_URI"`
	MongoDatabase  string        `env:"MONGO_DATABASE,default=posterminal"`
	MongoTimeout   time.Duration `env:"MONGO_TIMEOUT,default=10s"`
	SessionTTL     time.Duration `env:"SESSION_TTL,default=24h"`
	SessionSecret  string        `env:"SESSION_SECRET"`
	SweepInterval  time.Duration `env:"SESSION_SWEEP_INTERVAL,default=1h"`
	Users          string        `env:"POS_USERS"`
	AllowedOrigins string        `env:"CORS_ORIGINS,default=http://localhost:3000"`
	MetricsAllowIP string        `env:"METRICS_ALLOW_IP"`
	Proxies        string        `env:"TRUSTED_PROXIES"`
	LoginPerMinute int           `env:"LOGIN_RATE_PER_MINUTE,default=10"`
	LoginBurst     int           `env:"LOGIN_RATE_BURST,default=5"`
}

// Load reads an optional .env file and then the process environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case "memory":
	case "mongo":
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required when STORE_DRIVER=mongo")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.SweepInterval <= 0 {
		return errors.New("SESSION_SWEEP_INTERVAL must be positive")
	}
	if c.LoginPerMinute <= 0 {
		return errors.New("LOGIN_RATE_PER_MINUTE must be positive")
	}
	if c.LoginBurst <= 0 {
		return errors.New("LOGIN_RATE_BURST must be positive")
	}
	if len(c.SessionSecret) < 16 {
		return errors.New("SESSION_SECRET must be at least 16 characters")
	}
	users, err := auth.ParseUsers(c.Users)
	if err != nil {
		return fmt.Errorf("POS_USERS: %w", err)
	}
	if len(users) == 0 {
		return errors.New("POS_USERS must list at least one name:bcrypt-hash")
	}
	return nil
}

func (c Config) Production() bool {
	return c.Environment == "production"
}

func (c Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

// TrustedProxies lists the proxies whose X-Forwarded-For gin may believe.
// Empty means none: the client IP is always the connection's peer address.
func (c Config) TrustedProxies() []string {
	return splitList(c.Proxies)
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
