package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	"github.com/mixelka/codewatch/internal/config"
	"github.com/mixelka/codewatch/internal/database"
	"github.com/mixelka/codewatch/internal/email"
	"github.com/mixelka/codewatch/internal/gmail"
	"github.com/mixelka/codewatch/internal/httpapi"
	"github.com/mixelka/codewatch/internal/secret"
	"github.com/mixelka/codewatch/internal/telegram"
	"github.com/mixelka/codewatch/internal/watcher"
	"github.com/mixelka/codewatch/pkg/models"
)

const shutdownTimeout = 10 * time.Second

func main() {
	authorize := flag.Bool("authorize", false, "run the Gmail OAuth consent flow and save the token file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)

	if *authorize {
		if err := gmail.Authorize(context.Background(), cfg.GmailCredentialsFile, cfg.GmailTokenFile, os.Stdin, os.Stdout); err != nil {
			logger.Error("authorization failed", "error", err)
			os.Exit(1)
		}
		logger.Info("gmail token saved", "path", cfg.GmailTokenFile)
		return
	}

	logger.Info("starting code watcher", "backend", cfg.MailBackend, "database", cfg.DatabaseDriver)

	// Refuse to run next to another instance
	lockPath := cfg.InstanceLockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		logger.Error("failed to create lock directory", "error", err)
		os.Exit(1)
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		logger.Error("failed to acquire instance lock", "path", lockPath, "error", err)
		os.Exit(1)
	}
	if !locked {
		logger.Error("another instance is already running", "path", lockPath)
		os.Exit(1)
	}
	defer lock.Unlock()

	// Connect to database
	var dbOpts []database.Option
	if cfg.EncryptionEnabled() {
		box, err := secret.NewBox(cfg.EncryptionKey)
		if err != nil {
			logger.Error("failed to init encryption", "error", err)
			os.Exit(1)
		}
		dbOpts = append(dbOpts, database.WithSecretBox(box))
	} else {
		logger.Warn("ENCRYPTION_KEY is not set, credentials are stored in plain text")
	}

	db, err := database.New(cfg.DatabaseDriver, cfg.DataSource(), dbOpts...)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations completed")

	// Create components
	svc := watcher.NewService(db, newMailProvider(cfg, logger), newNotifierFactory(cfg), watcher.Options{
		Interval:     cfg.PollInterval,
		MaxResults:   cfg.SearchMaxResults,
		Window:       24 * time.Hour,
		Terms:        cfg.SearchTerms,
		IncludeRead:  !cfg.SearchUnreadOnly,
		ContentLimit: 200,
	}, logger)

	// Restore the running state from the database
	settings, err := db.GetSettings(ctx)
	switch {
	case errors.Is(err, database.ErrNotFound):
		logger.Info("no settings yet, configure them through the API")
	case err != nil:
		logger.Error("failed to load settings", "error", err)
		os.Exit(1)
	case settings.IsRunning:
		if err := svc.Start(ctx); err != nil {
			logger.Error("failed to start watcher", "error", err)
			os.Exit(1)
		}
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewHandler(httpapi.Deps{
			Store:   db,
			Watcher: svc,
			Logger:  logger.With("component", "http"),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http api listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		svc.Stop()
		svc.Wait()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

func newMailProvider(cfg *config.Config, logger *slog.Logger) watcher.MailProvider {
	if cfg.MailBackend == config.BackendIMAP {
		p := email.NewProvider(email.ProviderConfig{
			Server:      cfg.IMAPServer,
			DialTimeout: cfg.IMAPDialTimeout,
		}, logger)
		return watcher.MailProviderFunc(func(ctx context.Context, s *models.Settings) (watcher.Mailbox, error) {
			mb, err := p.Open(ctx, s)
			if err != nil {
				return nil, err
			}
			return mb, nil
		})
	}

	p := &gmail.Provider{
		CredentialsFile: cfg.GmailCredentialsFile,
		TokenFile:       cfg.GmailTokenFile,
	}
	return watcher.MailProviderFunc(func(ctx context.Context, _ *models.Settings) (watcher.Mailbox, error) {
		c, err := p.Open(ctx)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

func newNotifierFactory(cfg *config.Config) watcher.NotifierFactory {
	return func(token string) (watcher.Notifier, error) {
		n, err := telegram.NewNotifier(telegram.Config{
			Token:     token,
			ServerURL: cfg.TelegramAPIURL,
		})
		if err != nil {
			return nil, err
		}
		return n, nil
	}
}

func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler
	logLevel := parseLevel(level)

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		// Pretty colored output for console
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
