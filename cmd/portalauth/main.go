package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"

	"github.com/redlobsta/portalauth/adapters/accounts"
	"github.com/redlobsta/portalauth/adapters/events"
	"github.com/redlobsta/portalauth/adapters/mail"
	"github.com/redlobsta/portalauth/adapters/store"
	"github.com/redlobsta/portalauth/adapters/tokenizer"
	"github.com/redlobsta/portalauth/config"
	"github.com/redlobsta/portalauth/internal/logging"
	"github.com/redlobsta/portalauth/ports"
	"github.com/redlobsta/portalauth/service"
	transport "github.com/redlobsta/portalauth/transport/http"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to yaml config (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(log); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	secret := []byte(cfg.Auth.SigningSecret)
	if len(secret) == 0 {
		// Non-production fallback; Validate already warned loudly.
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			log.Error("failed to generate ephemeral secret", "err", err)
			os.Exit(1)
		}
		secret = []byte(hex.EncodeToString(buf))
	}

	kv, eventPub := buildBackends(cfg, log)

	limiter := service.NewRateLimiter(kv, log)
	links := service.NewMagicLink(kv, cfg.Auth.LinkTTL)
	revocations := service.NewRevocationStore(kv, log)
	sessions := service.NewSessionManager(tokenizer.NewJWTTokenizer(secret), revocations, cfg.Auth.SessionTTL)

	var mailer ports.Mailer
	if cfg.Mail.SMTPAddr != "" {
		mailer, err = mail.NewSMTPMailer(mail.Config{
			Addr:     cfg.Mail.SMTPAddr,
			From:     cfg.Mail.From,
			SiteName: cfg.Mail.SiteName,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
		})
		if err != nil {
			log.Error("failed to configure mailer", "err", err)
			os.Exit(1)
		}
	} else {
		if cfg.Production() {
			log.Error("SECURITY: SMTP_ADDR not set in production; magic links will be written to logs")
		}
		mailer = mail.LogMailer{Log: log}
	}

	directory := accounts.NewStaticDirectory(cfg.Accounts.ByEmail)

	authService := service.NewAuthService(
		limiter,
		links,
		sessions,
		directory,
		mailer,
		eventPub,
		cfg.Auth.AppOrigin,
		cfg.Auth.LinkTTL,
		service.RateLimitPolicy{
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      cfg.RateLimit.Window,
		},
		log,
	)

	router := transport.SetupRouter(authService, cfg.Auth.CookieName, cfg.Auth.SessionTTL)

	log.Info("starting portal auth service", "addr", cfg.HTTP.Addr(), "env", cfg.Env)
	if err := router.Run(cfg.HTTP.Addr()); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

// buildBackends selects the shared store and event publisher from config.
// Redis is preferred; Postgres is the relational fallback; the in-process
// store is a last resort that cannot coordinate across instances.
func buildBackends(cfg *config.Config, log *slog.Logger) (ports.KeyValueStore, ports.EventPublisher) {
	if cfg.Store.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Store.RedisURL)
		if err != nil {
			log.Error("failed to parse redis URL", "err", err)
			os.Exit(1)
		}
		client := redis.NewClient(opts)

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: client},
			watermill.NewSlogLogger(log),
		)
		if err != nil {
			log.Error("failed to create redis publisher", "err", err)
			os.Exit(1)
		}

		log.Info("using redis key-value store")
		return store.NewRedisStore(client), events.NewWatermillPublisher(publisher)
	}

	if cfg.Store.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(cfg.Store.DatabaseURL)
		if err != nil {
			log.Error("failed to open postgres store", "err", err)
			os.Exit(1)
		}
		log.Info("using postgres key-value store")
		return pg, events.NopPublisher{}
	}

	log.Warn("no shared store configured; using in-process store (single instance only)")
	return store.NewMemoryStore(), events.NopPublisher{}
}
