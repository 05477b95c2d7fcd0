package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mixelka/codewatch/internal/database"
	"github.com/mixelka/codewatch/pkg/models"
)

// SettingsView is the settings record as exposed over the API; secrets
// are reported only as present or absent
type SettingsView struct {
	TelegramChatID      string `json:"telegram_chat_id"`
	GmailEmail          string `json:"gmail_email"`
	FilterSubject       string `json:"filter_subject"`
	IsRunning           bool   `json:"is_running"`
	TelegramTokenSet    bool   `json:"telegram_token_set"`
	GmailAppPasswordSet bool   `json:"gmail_app_password_set"`
}

func newSettingsView(s *models.Settings) SettingsView {
	return SettingsView{
		TelegramChatID:      s.TelegramChatID,
		GmailEmail:          s.GmailEmail,
		FilterSubject:       s.FilterSubject,
		IsRunning:           s.IsRunning,
		TelegramTokenSet:    s.TelegramToken != "",
		GmailAppPasswordSet: s.GmailAppPassword != "",
	}
}

type SettingsHandler struct {
	Store   Store
	Watcher Watcher
	Logger  *slog.Logger
}

func (h SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.Store.GetSettings(r.Context())
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, r, CodeNotConfigured, "settings are not configured")
		return
	}
	if err != nil {
		h.Logger.Error("failed to load settings", "error", err)
		writeError(w, r, CodeStorageFailed, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, newSettingsView(s))
}

// Put merges a partial update. The watcher is restarted to pick up the new
// settings when the record says it should run, and stopped otherwise.
func (h SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var update models.SettingsUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, r, CodeInvalidSettings, "invalid settings JSON: "+err.Error())
		return
	}

	saved, err := h.Store.UpdateSettings(r.Context(), update)
	if err != nil {
		h.Logger.Error("failed to update settings", "error", err)
		writeError(w, r, CodeStorageFailed, "failed to update settings")
		return
	}

	if saved.IsRunning {
		if err := h.Watcher.Restart(r.Context()); err != nil {
			h.Logger.Error("failed to restart watcher", "error", err)
			writeError(w, r, CodeWatcherFailed, "settings saved but restart failed")
			return
		}
	} else {
		h.Watcher.Stop()
	}

	writeJSON(w, http.StatusOK, newSettingsView(saved))
}
