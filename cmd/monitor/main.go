package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"tweet_monitor/internal/config"
	"tweet_monitor/internal/publisher"
	"tweet_monitor/internal/scheduler"
	"tweet_monitor/internal/server"
	"tweet_monitor/internal/service"
	"tweet_monitor/internal/source/twitter"
	"tweet_monitor/internal/storage/postgres"
	"tweet_monitor/internal/voice"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single monitor pass and exit")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	// The realtime channel is optional; without it only phone fan-out runs.
	var broadcaster service.Broadcaster
	if cfg.RabbitMQ.URL != "" {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:      cfg.RabbitMQ.URL,
			Exchange: cfg.RabbitMQ.Exchange,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		broadcaster = rabbitMQ
	} else {
		logger.Warn("rabbitmq url not set, realtime notifications disabled")
	}

	accountStore := postgres.NewAccountStore(db)
	tweetStore := postgres.NewTweetStore(db)
	settingsStore := postgres.NewSettingsStore(db)
	preferenceStore := postgres.NewPreferenceStore(db)
	callLogStore := postgres.NewCallLogStore(db)
	txManager := postgres.NewTransactionManager(db)

	source := twitter.New(twitter.Config{
		BaseURL:          cfg.Twitter.BaseURL,
		BearerToken:      cfg.Twitter.BearerToken,
		MaxResults:       cfg.Twitter.MaxResults,
		Timeout:          cfg.Twitter.Timeout,
		MaxAttempts:      cfg.Twitter.Retry.MaxAttempts,
		InitialBackoff:   cfg.Twitter.Retry.InitialBackoff,
		MaxRateLimitWait: cfg.Twitter.Retry.MaxRateLimitWait,
	}, logger)

	router, err := setupCallRouter(cfg.Voice, logger)
	if err != nil {
		logger.Error("failed to set up call providers", "error", err)
		os.Exit(1)
	}

	notifier := service.NewNotifier(broadcaster, preferenceStore, router, callLogStore, logger)
	reconciler := service.NewReconciler(source, accountStore, tweetStore, txManager, notifier, logger)
	monitor := service.NewMonitor(settingsStore, accountStore, reconciler, cfg.Monitor.Concurrency, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		report, err := monitor.Run(ctx)
		if err != nil {
			logger.Error("monitor run failed", "error", err)
			os.Exit(1)
		}
		logger.Info("monitor run finished",
			"run_id", report.RunID,
			"skipped", report.Skipped,
			"new_tweets", report.NewTweets,
			"failed_accounts", report.Failed(),
		)
		return
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.New(monitor, callLogStore, cfg.Server.TriggerToken, logger).Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cfg.Monitor.TickInterval > 0 {
		sched := scheduler.NewScheduler(monitor, cfg.Monitor.TickInterval, logger)
		g.Go(func() error {
			if err := sched.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	logger.Info("tweet monitor started",
		"tick_interval", cfg.Monitor.TickInterval,
		"concurrency", cfg.Monitor.Concurrency,
		"phone_notifications", router.Enabled(),
	)

	if err := g.Wait(); err != nil {
		logger.Error("monitor stopped with error", "error", err)
		os.Exit(1)
	}
}

// setupCallRouter enables each provider only when its credentials are set.
func setupCallRouter(cfg config.VoiceConfig, logger *slog.Logger) (*voice.Router, error) {
	var domestic, international voice.Caller

	if cfg.Domestic.Enabled() {
		d, err := voice.NewDomestic(voice.DomesticConfig{
			Endpoint:     cfg.Domestic.Endpoint,
			AccessKey:    cfg.Domestic.AccessKey,
			AccessSecret: cfg.Domestic.AccessSecret,
			CallerNumber: cfg.Domestic.CallerNumber,
			TemplateID:   cfg.Domestic.TemplateID,
			Prefixes:     cfg.Domestic.Prefixes,
			MaxLen:       cfg.MaxMessageLen,
			Timeout:      cfg.Domestic.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		domestic = d
	} else {
		logger.Warn("domestic call provider not configured")
	}

	if cfg.International.Enabled() {
		international = voice.NewTwilio(voice.TwilioConfig{
			AccountSID:        cfg.International.AccountSID,
			AuthToken:         cfg.International.AuthToken,
			FromNumber:        cfg.International.FromNumber,
			StatusCallbackURL: cfg.International.StatusCallbackURL,
			MaxLen:            cfg.MaxMessageLen,
			Timeout:           cfg.International.Timeout,
		}, logger)
	} else {
		logger.Warn("international call provider not configured")
	}

	return voice.NewRegionalRouter(cfg.Domestic.Prefixes, domestic, international), nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
