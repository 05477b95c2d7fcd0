package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mixelka/codewatch/internal/watcher"
	"github.com/mixelka/codewatch/pkg/models"
)

type BotStatus struct {
	Running    bool `json:"running"`
	InProgress bool `json:"in_progress"`
}

type BotHandler struct {
	Store   Store
	Watcher Watcher
	Logger  *slog.Logger
}

func (h BotHandler) Start(w http.ResponseWriter, r *http.Request) {
	if !h.setRunning(w, r, true) {
		return
	}
	if err := h.Watcher.Start(r.Context()); err != nil {
		h.Logger.Error("failed to start watcher", "error", err)
		writeError(w, r, CodeWatcherFailed, "failed to start: "+err.Error())
		return
	}
	h.Status(w, r)
}

func (h BotHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if !h.setRunning(w, r, false) {
		return
	}
	h.Watcher.Stop()
	h.Status(w, r)
}

func (h BotHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, BotStatus{
		Running:    h.Watcher.Running(),
		InProgress: h.Watcher.InProgress(),
	})
}

func (h BotHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	err := h.Watcher.TestConnection(r.Context())
	if err == nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	var connErr *watcher.ConnectionError
	if errors.As(err, &connErr) {
		writeError(w, r, CodeConnectionFailed, connErr.Error())
		return
	}
	h.Logger.Error("connection test failed", "error", err)
	writeError(w, r, CodeInternal, err.Error())
}

// setRunning persists the desired state so it survives a restart
func (h BotHandler) setRunning(w http.ResponseWriter, r *http.Request, running bool) bool {
	if _, err := h.Store.UpdateSettings(r.Context(), models.SettingsUpdate{IsRunning: &running}); err != nil {
		h.Logger.Error("failed to save running state", "error", err)
		writeError(w, r, CodeStorageFailed, "failed to save running state")
		return false
	}
	return true
}
