package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wagate/internal/config"
	"wagate/internal/constants"
	"wagate/internal/database"
	"wagate/internal/models"
	"wagate/internal/retry"
	"wagate/internal/service"
	"wagate/internal/store"
	"wagate/internal/tracing"
	"wagate/pkg/whatsapp"
	watypes "wagate/pkg/whatsapp/types"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("wagate %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting wagate")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
			logger.SetLevel(logrus.InfoLevel)
		} else {
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	tracingManager := tracing.NewManager(cfg.Tracing, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Initialize the webhook registry database with exponential backoff retry
	var db *database.Database
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultDatabaseRetryAttempts,
		Jitter:       true,
	})
	err = backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(cfg.Database.Path)
		if initErr != nil {
			logger.Warnf("Failed to initialize database: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	defer db.Close()

	chatStore, err := store.NewChatContactStore(cfg.Session.SnapshotPath)
	if err != nil {
		return fmt.Errorf("failed to initialize chat store: %w", err)
	}
	logger.WithField("encrypted", chatStore.Encrypted()).Info("Chat snapshot store ready")

	dispatcher := service.NewWebhookDispatcher(
		time.Duration(cfg.Webhook.TimeoutSec)*time.Second,
		models.RetryConfig{
			InitialBackoffMs: cfg.Retry.InitialBackoffMs,
			MaxBackoffMs:     cfg.Retry.MaxBackoffMs,
			MaxAttempts:      cfg.Webhook.RetryCount,
		},
		logger,
	)

	notifier := service.NewNoticeBroadcaster()
	credSaver := whatsapp.NewFileCredentialSaver(cfg.Session.StorePath + ".creds.json")

	// The router reaches the client through the session manager so that
	// reconnects swap the handle under it; the session manager is created
	// after the router, hence the indirection.
	var session *service.SessionManager
	clientFn := func() watypes.Client {
		if session == nil {
			return nil
		}
		return session.CurrentClient()
	}

	router := service.NewEventRouter(
		cfg.Router,
		db,
		dispatcher,
		chatStore,
		credSaver,
		whatsapp.NewClassifier(),
		clientFn,
		logger,
	)
	router.Start(ctx)
	defer router.Stop()

	connector := whatsapp.NewConnector(whatsapp.Config{
		StorePath:  cfg.Session.StorePath,
		DeviceName: cfg.Session.DeviceName,
		PrintQR:    cfg.Session.PrintQR,
		Logger:     logger,
	})

	session = service.NewSessionManager(connector, router, notifier, chatStore, logger)

	server := NewServer(ctx, cfg, session, notifier, db, logger)
	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	if client := session.CurrentClient(); client != nil {
		client.Disconnect()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("Shutdown complete")
	return nil
}
