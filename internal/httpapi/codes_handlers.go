package httpapi

import (
	"log/slog"
	"net/http"
)

type CodesHandler struct {
	Store  Store
	Logger *slog.Logger
}

func (h CodesHandler) List(w http.ResponseWriter, r *http.Request) {
	codes, err := h.Store.GetCodes(r.Context())
	if err != nil {
		h.Logger.Error("failed to list codes", "error", err)
		writeError(w, r, CodeStorageFailed, "failed to list codes")
		return
	}
	writeJSON(w, http.StatusOK, codes)
}
