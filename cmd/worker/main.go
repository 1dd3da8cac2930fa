package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-admin/internal/app"
	"github.com/noah-isme/toko-admin/internal/config"
	"github.com/noah-isme/toko-admin/internal/events"
	"github.com/noah-isme/toko-admin/internal/notify"
	"github.com/noah-isme/toko-admin/internal/obs"
	"github.com/noah-isme/toko-admin/internal/queue"
	"github.com/noah-isme/toko-admin/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()
	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "toko_admin"), nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Open(ctx, cfg, logger, app.Options{AppName: "toko-admin-worker"})
	if err != nil {
		logger.Fatal().Err(err).Msg("open dependencies")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error().Err(err).Msg("close dependencies")
		}
	}()

	sinks := buildSinks(cfg, logger)
	if len(sinks) == 0 {
		logger.Warn().Msg("no event sinks configured; events are acknowledged without delivery")
	}

	dispatcher := &events.Dispatcher{
		Sinks:   sinks,
		Locker:  deps.Locker,
		LockTTL: cfg.LockTTL,
		Ledger:  events.RedisLedger{R: deps.Redis, Prefix: cfg.QueuePrefix + ":events", TTL: 7 * 24 * time.Hour},
		Logger:  obs.Component(logger, "dispatcher"),
	}

	eventWorker := queue.Worker{
		R:                 deps.Redis,
		Prefix:            cfg.QueuePrefix,
		Kind:              events.DefaultKind,
		Concurrency:       cfg.QueueConcurrency,
		VisibilityTimeout: cfg.QueueVisibilityTimeout,
		SoftDeadline:      envDurationMillis("WORKER_JOB_SOFT_DEADLINE_MS", 20000),
		RetryBase:         cfg.QueueBackoffBase,
		RetryJitter:       0.2,
		Store:             queue.NewStore(deps.DB),
		Logger:            &logger,
		Handler:           dispatcher.Handle,
	}

	logger.Info().Int("sinks", len(sinks)).Msg("worker starting")
	if err := eventWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker stopped with error")
	} else {
		logger.Info().Msg("worker shutdown complete")
	}
}

func buildSinks(cfg *config.Config, logger zerolog.Logger) []events.Sink {
	var sinks []events.Sink
	if cfg.KafkaEnabled() {
		breaker := resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("kafka").WithLogger(logger)
		sinks = append(sinks, &events.KafkaSink{
			Writer: events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic),
			Retry:  resilience.Retry{Breaker: breaker, MaxAttempts: 3, BaseBackoff: 200 * time.Millisecond, Jitter: 0.2},
		})
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("kafka sink enabled")
	}
	if cfg.TelegramEnabled() {
		bot, err := notify.NewBot(cfg.TelegramBotToken, envDurationMillis("TELEGRAM_TIMEOUT_MS", 10000))
		if err != nil {
			logger.Error().Err(err).Msg("telegram sink disabled")
		} else {
			sinks = append(sinks, &notify.Telegram{
				Bot:     bot,
				ChatID:  cfg.TelegramChatID,
				Topics:  notify.DefaultTopics(),
				Breaker: resilience.NewBreaker(3, 0.5, time.Minute).WithTarget("telegram").WithLogger(logger),
			})
			logger.Info().Int64("chat", cfg.TelegramChatID).Msg("telegram sink enabled")
		}
	}
	return sinks
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return time.Duration(parsed) * time.Millisecond
		}
	}
	return time.Duration(fallback) * time.Millisecond
}
