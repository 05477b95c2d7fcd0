package httpapi

import (
	"context"
	"log/slog"

	"github.com/mixelka/codewatch/pkg/models"
)

// Store is the persistence behind the API
type Store interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
	UpdateSettings(ctx context.Context, update models.SettingsUpdate) (*models.Settings, error)
	GetCodes(ctx context.Context) ([]*models.FoundCode, error)
}

// Watcher controls the polling service
type Watcher interface {
	Start(ctx context.Context) error
	Stop()
	Restart(ctx context.Context) error
	TestConnection(ctx context.Context) error
	Running() bool
	InProgress() bool
}

type Deps struct {
	Store   Store
	Watcher Watcher
	Logger  *slog.Logger
}
