package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mixelka/codewatch/pkg/models"
)

// ErrNotFound is returned when a record is not found
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists is returned when trying to insert a duplicate record
var ErrAlreadyExists = errors.New("record already exists")

// GetSettings returns the settings record
func (db *DB) GetSettings(ctx context.Context) (*models.Settings, error) {
	var settings models.Settings
	query := `SELECT * FROM settings ORDER BY id LIMIT 1`
	err := db.GetContext(ctx, &settings, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	if err := db.openSecrets(&settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// CreateSettings creates the settings record; only one may exist
func (db *DB) CreateSettings(ctx context.Context, settings *models.Settings) error {
	if _, err := db.GetSettings(ctx); err == nil {
		return ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	sealed, err := db.sealSecrets(settings)
	if err != nil {
		return err
	}

	query := db.Rebind(`
		INSERT INTO settings (telegram_token, telegram_chat_id, gmail_email, gmail_app_password, filter_subject, is_running)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	var id int64
	err = db.QueryRowxContext(ctx, query,
		sealed.TelegramToken,
		sealed.TelegramChatID,
		sealed.GmailEmail,
		sealed.GmailAppPassword,
		sealed.FilterSubject,
		sealed.IsRunning,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to create settings: %w", err)
	}

	settings.ID = id
	return nil
}

// UpdateSettings merges update into the settings record, creating it with defaults if missing
func (db *DB) UpdateSettings(ctx context.Context, update models.SettingsUpdate) (*models.Settings, error) {
	existing, err := db.GetSettings(ctx)
	if errors.Is(err, ErrNotFound) {
		settings := &models.Settings{}
		update.Apply(settings)
		if err := db.CreateSettings(ctx, settings); err != nil {
			return nil, err
		}
		return settings, nil
	}
	if err != nil {
		return nil, err
	}

	update.Apply(existing)

	sealed, err := db.sealSecrets(existing)
	if err != nil {
		return nil, err
	}

	query := db.Rebind(`
		UPDATE settings
		SET telegram_token = ?, telegram_chat_id = ?, gmail_email = ?, gmail_app_password = ?, filter_subject = ?, is_running = ?
		WHERE id = ?
	`)
	_, err = db.ExecContext(ctx, query,
		sealed.TelegramToken,
		sealed.TelegramChatID,
		sealed.GmailEmail,
		sealed.GmailAppPassword,
		sealed.FilterSubject,
		sealed.IsRunning,
		existing.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return existing, nil
}

// sealSecrets returns a copy of settings with credential fields sealed
func (db *DB) sealSecrets(settings *models.Settings) (*models.Settings, error) {
	sealed := *settings
	if db.box == nil {
		return &sealed, nil
	}

	var err error
	if sealed.TelegramToken, err = db.box.Seal(settings.TelegramToken); err != nil {
		return nil, fmt.Errorf("failed to seal telegram token: %w", err)
	}
	if sealed.GmailAppPassword, err = db.box.Seal(settings.GmailAppPassword); err != nil {
		return nil, fmt.Errorf("failed to seal app password: %w", err)
	}
	return &sealed, nil
}

func (db *DB) openSecrets(settings *models.Settings) error {
	if db.box == nil {
		return nil
	}

	var err error
	if settings.TelegramToken, err = db.box.Open(settings.TelegramToken); err != nil {
		return fmt.Errorf("failed to open telegram token: %w", err)
	}
	if settings.GmailAppPassword, err = db.box.Open(settings.GmailAppPassword); err != nil {
		return fmt.Errorf("failed to open app password: %w", err)
	}
	return nil
}
