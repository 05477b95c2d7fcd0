package httpapi

import (
	"encoding/json"
	"net/http"
)

// ErrorCode identifies a failure class in the error envelope
type ErrorCode string

const (
	CodeNotConfigured    ErrorCode = "settings_not_configured"
	CodeInvalidSettings  ErrorCode = "invalid_settings"
	CodeConnectionFailed ErrorCode = "connection_failed"
	CodeWatcherFailed    ErrorCode = "watcher_failed"
	CodeStorageFailed    ErrorCode = "storage_failed"
	CodeMethodNotAllowed ErrorCode = "method_not_allowed"
	CodeInternal         ErrorCode = "internal_error"
)

// Status is the HTTP status the code is served with
func (c ErrorCode) Status() int {
	switch c {
	case CodeNotConfigured:
		return http.StatusNotFound
	case CodeInvalidSettings:
		return http.StatusBadRequest
	case CodeConnectionFailed:
		return http.StatusBadGateway
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// APIError is the envelope for every non-2xx response:
// {"error":{"code":"...","message":"...","request_id":"..."}}
type APIError struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code ErrorCode, message string) {
	writeJSON(w, code.Status(), APIError{Error: ErrorBody{
		Code:      code,
		Message:   message,
		RequestID: RequestIDFrom(r.Context()),
	}})
}
