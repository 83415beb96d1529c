package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nidhogg/ruleta/internal/api"
	"github.com/nidhogg/ruleta/internal/audit"
	"github.com/nidhogg/ruleta/internal/catalog"
	"github.com/nidhogg/ruleta/internal/config"
	"github.com/nidhogg/ruleta/internal/kv"
	"github.com/nidhogg/ruleta/internal/notify"
	"github.com/nidhogg/ruleta/internal/reward"
	"github.com/nidhogg/ruleta/internal/rotation"
	"github.com/nidhogg/ruleta/internal/spin"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	// Load configuration; a missing file means env-only operation.
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/ruleta.json"
	}
	var cfg *config.Config
	if _, statErr := os.Stat(cfgPath); statErr == nil {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	logger := newLogger(cfg.Server.LogLevel)
	defer logger.Sync()

	logger.Info("starting ruleta", zap.Int("port", cfg.Server.Port), zap.String("reward_mode", cfg.Reward.Mode))

	// Storage: Redis when configured, in-process memory otherwise.
	var store kv.Store
	if cfg.Redis.URL != "" {
		rs, err := kv.NewRedis(cfg.Redis.URL, logger)
		if err != nil {
			logger.Warn("redis unavailable, falling back to memory store", zap.Error(err))
			store = kv.NewMemory()
		} else {
			store = rs
		}
	} else {
		logger.Warn("no redis url configured, using memory store (state is lost on restart)")
		store = kv.NewMemory()
	}
	defer store.Close()

	defaults := make([]catalog.Cajero, len(cfg.Catalog.Cajeros))
	for i, c := range cfg.Catalog.Cajeros {
		defaults[i] = catalog.Cajero{Nombre: c.Nombre, Numero: c.Numero}
	}
	cat := catalog.New(store, defaults, logger)
	assigner := rotation.New(store)

	policy, err := buildPolicy(cfg, store)
	if err != nil {
		logger.Fatal("reward policy", zap.Error(err))
	}

	orch := spin.New(store, cat, assigner, policy, logger)

	// Optional spin audit trail.
	var auditStore *audit.Store
	if cfg.Postgres.DSN != "" {
		as, err := audit.New(cfg.Postgres.DSN, logger)
		if err != nil {
			logger.Warn("postgres unavailable, running without spin audit", zap.Error(err))
		} else {
			if err := as.Migrate(context.Background(), "migrations"); err != nil {
				logger.Fatal("migration failed", zap.Error(err))
			}
			auditStore = as
			orch.SetRecorder(as)
			defer as.Close()
		}
	}

	// Optional ops notifications.
	var notifiers notify.Multi
	if cfg.Notify.Slack.Enabled && cfg.Notify.Slack.BotToken != "" {
		notifiers = append(notifiers, notify.NewSlack(cfg.Notify.Slack.BotToken, cfg.Notify.Slack.Channel, logger))
	}
	if cfg.Notify.Discord.Enabled && cfg.Notify.Discord.BotToken != "" {
		dn, err := notify.NewDiscord(cfg.Notify.Discord.BotToken, cfg.Notify.Discord.ChannelID, logger)
		if err != nil {
			logger.Warn("discord notifier unavailable", zap.Error(err))
		} else {
			notifiers = append(notifiers, dn)
		}
	}
	var notifier notify.Notifier
	if len(notifiers) > 0 {
		notifier = notifiers
		orch.SetNotifier(notifier)
	}

	handler := api.NewHandler(orch, cat, auditStore, notifier, cfg.Server.StaticDir, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("ruleta listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down ruleta...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}

// buildPolicy constructs the configured reward policy.
func buildPolicy(cfg *config.Config, store kv.Store) (reward.Policy, error) {
	switch cfg.Reward.Mode {
	case "tiered":
		loc := time.UTC
		if cfg.Reward.Timezone != "" {
			l, err := time.LoadLocation(cfg.Reward.Timezone)
			if err != nil {
				return nil, fmt.Errorf("load timezone %s: %w", cfg.Reward.Timezone, err)
			}
			loc = l
		}
		return reward.NewTieredDaily(store, cfg.Reward.PremiosGrandes, cfg.Reward.Premios, loc)
	case "flat", "":
		return reward.NewFlat(cfg.Reward.Premios)
	default:
		return nil, fmt.Errorf("unknown reward mode %q", cfg.Reward.Mode)
	}
}

// newLogger builds a zap logger for the configured level.
func newLogger(level string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}
