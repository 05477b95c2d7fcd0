package models

import "time"

// FoundCode is one discovered verification code
type FoundCode struct {
	ID      int64     `db:"id" json:"id"`
	Code    string    `db:"code" json:"code"`
	Source  string    `db:"source" json:"source"`   // Subject of the originating message
	Content string    `db:"content" json:"content"` // First 200 characters of the decoded body
	FoundAt time.Time `db:"found_at" json:"found_at"`
}
