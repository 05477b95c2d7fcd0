package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mixelka/codewatch/internal/database"
	"github.com/mixelka/codewatch/internal/formatter"
	"github.com/mixelka/codewatch/internal/parser"
)

// Options tune polling and extraction
type Options struct {
	Interval     time.Duration // Time between passes
	MaxResults   int           // Messages considered per pass
	Window       time.Duration // Only messages newer than this
	Terms        []string      // Indicator terms, any of which must appear
	IncludeRead  bool          // Also consider messages already marked processed
	ContentLimit int           // Characters of body kept with each code
}

// DefaultOptions returns the standard polling setup. Zero fields passed
// to NewService fall back to these values.
func DefaultOptions() Options {
	return Options{
		Interval:     60 * time.Second,
		MaxResults:   10,
		Window:       24 * time.Hour,
		Terms:        []string{"verification", "code", "код", "подтверждение"},
		ContentLimit: 200,
	}
}

// Service polls the mailbox on a schedule and forwards found codes
type Service struct {
	store       Store
	mail        MailProvider
	newNotifier NotifierFactory
	opts        Options
	detector    *parser.CodeDetector
	html        *parser.HTMLParser
	formatter   *formatter.TelegramFormatter
	logger      *slog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	notifier Notifier

	inProgress atomic.Bool
	passes     sync.WaitGroup
}

// NewService creates a new polling service
func NewService(store Store, mail MailProvider, newNotifier NotifierFactory, opts Options, logger *slog.Logger) *Service {
	defaults := DefaultOptions()
	if opts.Interval <= 0 {
		opts.Interval = defaults.Interval
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaults.MaxResults
	}
	if opts.Window <= 0 {
		opts.Window = defaults.Window
	}
	if len(opts.Terms) == 0 {
		opts.Terms = defaults.Terms
	}
	if opts.ContentLimit <= 0 {
		opts.ContentLimit = defaults.ContentLimit
	}

	return &Service{
		store:       store,
		mail:        mail,
		newNotifier: newNotifier,
		opts:        opts,
		detector:    parser.NewCodeDetector(),
		html:        parser.NewHTMLParser(),
		formatter:   formatter.NewTelegramFormatter(),
		logger:      logger.With("component", "watcher"),
	}
}

// Start begins polling. Missing settings or an empty bot token leave the
// service idle and return nil.
func (s *Service) Start(ctx context.Context) error {
	settings, err := s.store.GetSettings(ctx)
	if errors.Is(err, database.ErrNotFound) {
		s.logger.Warn("settings are not configured, not starting")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if settings.TelegramToken == "" {
		s.logger.Warn("telegram token is not configured, not starting")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	notifier, err := s.newNotifier(settings.TelegramToken)
	if err != nil {
		s.logger.Error("failed to create notifier", "error", err)
		notifier = nil
	}
	s.notifier = notifier

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.run(runCtx, done)

	s.logger.Info("watcher started", "interval", s.opts.Interval)
	return nil
}

// Stop cancels the schedule and waits for the ticker goroutine to exit.
// A pass already running is left to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopLocked() {
		s.logger.Info("watcher stopped")
	}
}

// Restart stops and starts the service with freshly loaded settings
func (s *Service) Restart(ctx context.Context) error {
	s.Stop()
	return s.Start(ctx)
}

// Running reports whether the schedule is active
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// InProgress reports whether a pass is executing
func (s *Service) InProgress() bool {
	return s.inProgress.Load()
}

// Wait blocks until passes started by the schedule have finished
func (s *Service) Wait() {
	s.passes.Wait()
}

// TestConnection checks the mailbox and, if a token is configured, the bot
func (s *Service) TestConnection(ctx context.Context) error {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return &ConnectionError{Err: fmt.Errorf("failed to load settings: %w", err)}
	}

	mb, err := s.mail.Open(ctx, settings)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	defer mb.Close()

	address, err := mb.Profile(ctx)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	s.logger.Info("mailbox reachable", "email", address)

	if settings.TelegramToken == "" {
		return nil
	}

	notifier, err := s.newNotifier(settings.TelegramToken)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	name, err := notifier.Identity(ctx)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	s.logger.Info("telegram bot reachable", "bot", name)

	return nil
}

// stopLocked ends the current schedule; it reports whether one was running
func (s *Service) stopLocked() bool {
	if s.cancel == nil {
		return false
	}

	s.cancel()
	<-s.done

	s.cancel = nil
	s.done = nil
	s.notifier = nil
	return true
}

func (s *Service) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.trigger(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

// trigger starts a pass in its own goroutine so a slow pass never delays
// the ticker; overlapping triggers are dropped by RunPass.
func (s *Service) trigger(ctx context.Context) {
	s.passes.Add(1)
	go func() {
		defer s.passes.Done()
		s.RunPass(context.WithoutCancel(ctx))
	}()
}

func (s *Service) currentNotifier() Notifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notifier
}
