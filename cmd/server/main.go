package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/syncwell/mailsync-backend/internal/api"
	"github.com/syncwell/mailsync-backend/internal/cache"
	"github.com/syncwell/mailsync-backend/internal/config"
	"github.com/syncwell/mailsync-backend/internal/database"
	seclog "github.com/syncwell/mailsync-backend/internal/logger"
	"github.com/syncwell/mailsync-backend/internal/metrics"
	"github.com/syncwell/mailsync-backend/internal/provider"
	"github.com/syncwell/mailsync-backend/internal/provider/gmail"
	"github.com/syncwell/mailsync-backend/internal/provider/outlook"
	"github.com/syncwell/mailsync-backend/internal/repository"
	"github.com/syncwell/mailsync-backend/internal/resilience"
	"github.com/syncwell/mailsync-backend/internal/services"
	"github.com/syncwell/mailsync-backend/internal/shard"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.LoadWithValidation()
	if err != nil {
		slog.Error("configuration error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	cfg.LogConfig(logger)

	// One connection per shard; a shard that cannot be reached or migrated
	// is fatal at startup
	shards := make([]*gorm.DB, 0, cfg.ShardCount())
	for i, dsn := range cfg.ShardDatabaseURLs {
		db, err := database.Connect(dsn)
		if err != nil {
			logger.Error("shard connection failed", slog.Int("shard", i), slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := database.Migrate(db); err != nil {
			logger.Error("shard migration failed", slog.Int("shard", i), slog.String("error", err.Error()))
			os.Exit(1)
		}
		shards = append(shards, db)
	}

	cluster, err := shard.NewCluster(shards)
	if err != nil {
		logger.Error("cluster setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sink := metrics.New()
	emailCache := cache.New(cfg.CacheTTL)
	repo := repository.NewEmailRepository(cluster)

	emails := services.NewEmailService(repo, emailCache, cluster, sink, logger, resilience.Config{
		MaxRetries:      cfg.RetryMaxRetries,
		BaseDelay:       cfg.RetryBaseDelay,
		BreakerCooldown: cfg.BreakerCooldown,
	})
	sync := services.NewSyncService(buildProviders(cfg, logger), emails, sink, logger, cfg.SyncConcurrency)

	router := api.NewRouter(&api.RouterConfig{
		Emails:            emails,
		Sync:              sync,
		Metrics:           sink,
		Logger:            logger,
		Security:          seclog.NewSecurityLogger(),
		APIKey:            cfg.APIKey,
		AllowedOrigins:    splitOrigins(cfg.AllowedOrigins),
		AppEnv:            cfg.AppEnv,
		RateLimit:         int(cfg.RateLimitRequests),
		RateBurst:         cfg.RateLimitBurst,
		AttachmentGateway: cfg.AttachmentGatewayURL,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		logger.Info("starting API server", slog.String("addr", addr))
		if err := router.Start(addr); err != nil {
			logger.Info("API server stopped", slog.String("reason", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := router.Shutdown(ctx); err != nil {
		logger.Error("API shutdown failed", slog.String("error", err.Error()))
	}
	if err := cluster.Close(); err != nil {
		logger.Error("closing shards failed", slog.String("error", err.Error()))
	}
	logger.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// buildProviders registers the provider clients whose credentials are
// configured. Refresh tokens come from the environment until the identity
// subsystem lands.
func buildProviders(cfg *config.Config, logger *slog.Logger) []provider.Client {
	var providers []provider.Client

	if cfg.GmailClientID != "" && cfg.GmailClientSecret != "" {
		tokens := &refreshTokenProvider{
			conf: &oauth2.Config{
				ClientID:     cfg.GmailClientID,
				ClientSecret: cfg.GmailClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"https://www.googleapis.com/auth/gmail.readonly"},
			},
			refreshToken: os.Getenv("GMAIL_REFRESH_TOKEN"),
		}
		providers = append(providers, gmail.New(tokens, logger))
		logger.Info("gmail provider registered")
	}

	if cfg.OutlookClientID != "" && cfg.OutlookClientSecret != "" {
		tenant := cfg.OutlookTenantID
		if tenant == "" {
			tenant = "common"
		}
		tokens := &refreshTokenProvider{
			conf: &oauth2.Config{
				ClientID:     cfg.OutlookClientID,
				ClientSecret: cfg.OutlookClientSecret,
				Endpoint:     microsoft.AzureADEndpoint(tenant),
				Scopes:       []string{"https://graph.microsoft.com/Mail.Read"},
			},
			refreshToken: os.Getenv("OUTLOOK_REFRESH_TOKEN"),
		}
		providers = append(providers, outlook.New(tokens, logger))
		logger.Info("outlook provider registered")
	}

	if len(providers) == 0 {
		logger.Warn("no provider credentials configured, sync is disabled")
	}
	return providers
}

// refreshTokenProvider exchanges a long-lived refresh token for access
// tokens. Every account currently shares the same grant.
type refreshTokenProvider struct {
	conf         *oauth2.Config
	refreshToken string
}

func (p *refreshTokenProvider) TokenSource(ctx context.Context, _ string) (oauth2.TokenSource, error) {
	if p.refreshToken == "" {
		return nil, fmt.Errorf("no refresh token configured")
	}
	return p.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: p.refreshToken}), nil
}
