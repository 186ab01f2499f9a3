// Package config loads the service configuration from a yaml file and/or
// environment variables and validates the security-sensitive parts at
// startup.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/redlobsta/portalauth/core"
)

const EnvProduction = "production"

// Config is the root configuration of the service.
type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Store     StoreConfig     `yaml:"store"`
	Mail      MailConfig      `yaml:"mail"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Accounts  AccountsConfig  `yaml:"accounts"`
}

// HTTPConfig holds the listen address of the HTTP server.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"9000"`
}

// Addr returns the listen address in host:port form.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig holds token and session lifecycle parameters.
type AuthConfig struct {
	// SigningSecret is the symmetric MAC key for session credentials.
	SigningSecret string `yaml:"signing_secret" env:"SIGNING_SECRET"`
	// AppOrigin is the canonical origin used to build magic links.
	AppOrigin  string        `yaml:"app_origin" env:"APP_ORIGIN" env-default:"http://localhost:9000"`
	LinkTTL    time.Duration `yaml:"link_ttl" env:"LINK_TTL" env-default:"15m"`
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"24h"`
	CookieName string        `yaml:"cookie_name" env:"COOKIE_NAME" env-default:"portal_session"`
}

// StoreConfig selects the shared key-value backend. Redis wins when both
// are set; with neither, the in-process store is used.
type StoreConfig struct {
	RedisURL    string `yaml:"redis_url" env:"REDIS_URL"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
}

// MailConfig holds SMTP delivery settings. With an empty Addr, links are
// logged instead of emailed (development only).
type MailConfig struct {
	SMTPAddr string `yaml:"smtp_addr" env:"SMTP_ADDR"`
	From     string `yaml:"from" env:"MAIL_FROM" env-default:"noreply@localhost"`
	SiteName string `yaml:"site_name" env:"SITE_NAME" env-default:"Portal"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
}

// AccountsConfig populates the static account directory. ByEmail comes
// from yaml; the ACCOUNTS env form is comma-separated "email:id1;id2"
// entries and overrides yaml per email.
type AccountsConfig struct {
	ByEmail map[string][]string `yaml:"by_email"`
	Raw     string              `yaml:"-" env:"ACCOUNTS"`
}

func (a *AccountsConfig) parseRaw() error {
	if a.Raw == "" {
		return nil
	}
	if a.ByEmail == nil {
		a.ByEmail = make(map[string][]string)
	}
	for _, entry := range strings.Split(a.Raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		email, ids, ok := strings.Cut(entry, ":")
		if !ok || email == "" || ids == "" {
			return fmt.Errorf("malformed ACCOUNTS entry %q, want email:id1;id2", entry)
		}
		a.ByEmail[strings.TrimSpace(email)] = strings.Split(ids, ";")
	}
	return nil
}

// RateLimitConfig bounds magic-link requests per identity.
type RateLimitConfig struct {
	MaxRequests int64         `yaml:"max_requests" env:"RATE_LIMIT_MAX" env-default:"3"`
	Window      time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW" env-default:"1h"`
}

// Load reads configuration from path (optional) and the environment.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %q: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config from env: %w", err)
	}

	if err := cfg.Accounts.parseRaw(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Production reports whether the service runs in the production environment.
func (c *Config) Production() bool {
	return c.Env == EnvProduction
}

// Validate enforces the startup security posture. A missing signing secret
// is fatal in production and a loud warning elsewhere; a missing shared
// store in production degrades revocation and rate limiting to
// per-instance behavior, which is warned about but not fatal.
func (c *Config) Validate(log *slog.Logger) error {
	if c.Auth.SigningSecret == "" {
		if c.Production() {
			return fmt.Errorf("%w: SIGNING_SECRET is required in production", core.ErrConfigMissing)
		}
		log.Warn("SECURITY: SIGNING_SECRET not set; generating an ephemeral secret, sessions will not survive restarts")
	}

	if len(c.Accounts.ByEmail) == 0 {
		log.Warn("no accounts configured; every login request will be dropped, set ACCOUNTS or accounts.by_email")
	}

	if c.Store.RedisURL == "" && c.Store.DatabaseURL == "" && c.Production() {
		log.Error("SECURITY: no REDIS_URL or DATABASE_URL in production; " +
			"one-time token consumption, rate limiting and revocation will not work across instances")
	}

	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate_limit.max_requests must be positive")
	}
	if c.Auth.LinkTTL <= 0 || c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth TTLs must be positive")
	}

	return nil
}
