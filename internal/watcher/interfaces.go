package watcher

import (
	"context"

	"github.com/mixelka/codewatch/pkg/models"
)

// Store is the persistence the service depends on
type Store interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
	CreateCode(ctx context.Context, code *models.FoundCode) error
}

// Mailbox is an open session with the mail provider
type Mailbox interface {
	ListMessages(ctx context.Context, q models.SearchQuery, max int) ([]string, error)
	GetMessage(ctx context.Context, id string) (*models.MailMessage, error)
	MarkProcessed(ctx context.Context, id string) error
	Profile(ctx context.Context) (string, error)
	Close() error
}

// MailProvider opens a mailbox for the current settings
type MailProvider interface {
	Open(ctx context.Context, settings *models.Settings) (Mailbox, error)
}

// MailProviderFunc adapts a function to MailProvider
type MailProviderFunc func(ctx context.Context, settings *models.Settings) (Mailbox, error)

// Open calls f(ctx, settings)
func (f MailProviderFunc) Open(ctx context.Context, settings *models.Settings) (Mailbox, error) {
	return f(ctx, settings)
}

// Notifier delivers notification text to a chat
type Notifier interface {
	Send(ctx context.Context, chatID, text string) error
	Identity(ctx context.Context) (string, error)
}

// NotifierFactory builds a notifier from a bot token
type NotifierFactory func(token string) (Notifier, error)
