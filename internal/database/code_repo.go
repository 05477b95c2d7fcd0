package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mixelka/codewatch/pkg/models"
)

// codesLimit caps how many codes GetCodes returns
const codesLimit = 50

// CreateCode appends a found code
func (db *DB) CreateCode(ctx context.Context, code *models.FoundCode) error {
	query := db.Rebind(`
		INSERT INTO found_codes (code, source, content, found_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)
	now := time.Now().UTC()
	var id int64
	err := db.QueryRowxContext(ctx, query,
		code.Code,
		code.Source,
		code.Content,
		now,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to create code: %w", err)
	}

	code.ID = id
	code.FoundAt = now
	return nil
}

// GetCodes returns the most recent codes, newest first
func (db *DB) GetCodes(ctx context.Context) ([]*models.FoundCode, error) {
	codes := []*models.FoundCode{}
	query := db.Rebind(`SELECT * FROM found_codes ORDER BY found_at DESC, id DESC LIMIT ?`)
	err := db.SelectContext(ctx, &codes, query, codesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get codes: %w", err)
	}
	return codes, nil
}
