package watcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mixelka/codewatch/internal/parser"
	"github.com/mixelka/codewatch/pkg/models"
)

const noSubject = "No Subject"

// RunPass runs one extraction pass. It returns false without doing
// anything when another pass is already in progress.
func (s *Service) RunPass(ctx context.Context) (ran bool) {
	if !s.inProgress.CompareAndSwap(false, true) {
		s.logger.Debug("pass already in progress, skipping")
		return false
	}
	ran = true
	defer s.inProgress.Store(false)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("extraction pass panicked", "panic", r)
		}
	}()

	if err := s.extract(ctx); err != nil {
		s.logger.Error("extraction pass failed", "error", err)
	}
	return ran
}

func (s *Service) extract(ctx context.Context) error {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	mb, err := s.mail.Open(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to open mailbox: %w", err)
	}
	defer func() {
		if err := mb.Close(); err != nil {
			s.logger.Warn("failed to close mailbox", "error", err)
		}
	}()

	query := models.SearchQuery{
		Window:     s.opts.Window,
		Terms:      s.opts.Terms,
		Subject:    settings.FilterSubject,
		UnreadOnly: !s.opts.IncludeRead,
	}

	ids, err := mb.ListMessages(ctx, query, s.opts.MaxResults)
	if err != nil {
		return fmt.Errorf("failed to list messages: %w", err)
	}
	s.logger.Debug("candidate messages", "count", len(ids))

	for _, id := range ids {
		if err := s.processMessage(ctx, mb, settings, id); err != nil {
			s.logger.Warn("failed to process message", "message_id", id, "error", err)
		}
	}
	return nil
}

// processMessage handles a single candidate: store, then notify, then mark.
// A message without a body or without a code is left unmarked. The notifier
// is looked up per message so a Stop mid-pass silences the rest.
func (s *Service) processMessage(ctx context.Context, mb Mailbox, settings *models.Settings, id string) error {
	msg, err := mb.GetMessage(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch message: %w", err)
	}

	subject := msg.Subject
	if subject == "" {
		subject = noSubject
	}

	part := firstPart(msg)
	if part == nil || part.Data == "" {
		return nil
	}

	text, err := parser.DecodeBody(part)
	if err != nil {
		return fmt.Errorf("failed to decode body: %w", err)
	}
	if parser.IsHTML(part) {
		text, err = s.html.Parse(text)
		if err != nil {
			return fmt.Errorf("failed to parse html body: %w", err)
		}
	}

	code, ok := s.detector.Detect(text)
	if !ok {
		return nil
	}

	logger := s.logger.With("message_id", id)
	logger.Info("code found", "source", subject)

	found := &models.FoundCode{
		Code:    code,
		Source:  subject,
		Content: parser.Truncate(text, s.opts.ContentLimit),
	}
	if err := s.store.CreateCode(ctx, found); err != nil {
		return fmt.Errorf("failed to save code: %w", err)
	}

	notifier := s.currentNotifier()
	if notifier != nil && settings.TelegramChatID != "" {
		if err := notifier.Send(ctx, settings.TelegramChatID, s.formatter.FormatCode(code, subject)); err != nil {
			return fmt.Errorf("failed to send notification: %w", err)
		}
	} else {
		logger.Debug("notification skipped", slog.Bool("notifier", notifier != nil), slog.Bool("chat_id", settings.TelegramChatID != ""))
	}

	if err := mb.MarkProcessed(ctx, id); err != nil {
		return fmt.Errorf("failed to mark message processed: %w", err)
	}
	return nil
}

// firstPart returns the first part of a multipart message, else its body
func firstPart(msg *models.MailMessage) *models.MessagePart {
	if len(msg.Parts) > 0 {
		return &msg.Parts[0]
	}
	return msg.Body
}
