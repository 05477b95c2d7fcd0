package models

// Settings is the singleton configuration record
type Settings struct {
	ID               int64  `db:"id"`
	TelegramToken    string `db:"telegram_token"`     // Sealed at rest when an encryption key is set
	TelegramChatID   string `db:"telegram_chat_id"`   // Target chat ID or @channel
	GmailEmail       string `db:"gmail_email"`        // Mail account address
	GmailAppPassword string `db:"gmail_app_password"` // Used by the IMAP backend
	FilterSubject    string `db:"filter_subject"`     // Optional subject restriction
	IsRunning        bool   `db:"is_running"`
}

// SettingsUpdate is a partial settings change; nil fields are left untouched
type SettingsUpdate struct {
	TelegramToken    *string `json:"telegram_token,omitempty"`
	TelegramChatID   *string `json:"telegram_chat_id,omitempty"`
	GmailEmail       *string `json:"gmail_email,omitempty"`
	GmailAppPassword *string `json:"gmail_app_password,omitempty"`
	FilterSubject    *string `json:"filter_subject,omitempty"`
	IsRunning        *bool   `json:"is_running,omitempty"`
}

// Apply merges the non-nil fields of u into s
func (u SettingsUpdate) Apply(s *Settings) {
	if u.TelegramToken != nil {
		s.TelegramToken = *u.TelegramToken
	}
	if u.TelegramChatID != nil {
		s.TelegramChatID = *u.TelegramChatID
	}
	if u.GmailEmail != nil {
		s.GmailEmail = *u.GmailEmail
	}
	if u.GmailAppPassword != nil {
		s.GmailAppPassword = *u.GmailAppPassword
	}
	if u.FilterSubject != nil {
		s.FilterSubject = *u.FilterSubject
	}
	if u.IsRunning != nil {
		s.IsRunning = *u.IsRunning
	}
}
