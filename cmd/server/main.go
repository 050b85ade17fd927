// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"jobmatcher/internal/api"
	"jobmatcher/internal/common/config"
	"jobmatcher/internal/common/database"
	"jobmatcher/internal/common/email"
	"jobmatcher/internal/common/logger"
	"jobmatcher/internal/common/observability"
	"jobmatcher/internal/services/appstate"
	"jobmatcher/internal/services/digest"
	"jobmatcher/internal/services/magiclink"
	"jobmatcher/internal/services/notification"
	"jobmatcher/internal/services/session"
	"jobmatcher/internal/services/subscription"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init AWS messaging clients ---
	awsClients, err := email.NewClients(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("aws client init failed", zap.Error(err))
	}

	// --- Wire services ---
	subs := subscription.NewService(pg.DB, redis.Client, log)
	sessions := session.NewService(pg.DB, log)
	magicLinks := magiclink.NewService(pg.DB, log, cfg.App.BaseURL, cfg.MagicLink.TokenTTL())
	appState := appstate.NewService(pg.DB, log)
	notifier := notification.NewService(
		&notification.Config{
			EmailEnabled: cfg.Notifications.Email.Enabled,
			SMSEnabled:   cfg.Notifications.SMS.Enabled,
			FromEmail:    cfg.Notifications.Email.FromEmail,
			BaseURL:      cfg.App.BaseURL,
		},
		pg.DB, log, awsClients.SES, awsClients.SNS, subs,
	)
	digests := digest.NewService(pg.DB, log, awsClients.SES, cfg.Notifications.Email.FromEmail, cfg.App.BaseURL)

	server := api.NewServer(
		log, obs, magicLinks, appState, notifier, sessions, digests,
		cfg.Digest.CronSecret, config.GetDuration(cfg.Server.RequestTimeout),
	)

	// --- Optional in-process scheduler ---
	scheduler := cron.New()
	scheduled := false
	if cfg.Digest.DailySchedule != "" {
		if _, err := scheduler.AddFunc(cfg.Digest.DailySchedule, func() {
			runDigest(digests, log, "daily")
		}); err != nil {
			zapLog.Fatal("invalid daily schedule", zap.Error(err))
		}
		scheduled = true
	}
	if cfg.Digest.WeeklySchedule != "" {
		if _, err := scheduler.AddFunc(cfg.Digest.WeeklySchedule, func() {
			runDigest(digests, log, "weekly")
		}); err != nil {
			zapLog.Fatal("invalid weekly schedule", zap.Error(err))
		}
		scheduled = true
	}
	if scheduled {
		// Expired token cleanup rides along with the digest scheduler.
		_, _ = scheduler.AddFunc("@hourly", func() {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if _, err := magicLinks.CleanupExpired(cleanupCtx); err != nil {
				log.Error("token cleanup failed", map[string]interface{}{"error": err.Error()})
			}
		})
		scheduler.Start()
		defer scheduler.Stop()
		zapLog.Info("digest scheduler started")
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: server.Router(),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.Server.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("Server stopped")
}

func runDigest(digests *digest.Service, log logger.Logger, frequency string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if _, err := digests.Run(ctx, frequency); err != nil {
		log.Error("scheduled digest failed", map[string]interface{}{
			"frequency": frequency,
			"error":     err.Error(),
		})
	}
}
