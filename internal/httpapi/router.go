package httpapi

import "net/http"

// NewHandler returns the API mux wrapped in the standard middleware
func NewHandler(d Deps) http.Handler {
	return Chain(NewMux(d), RequestID, AccessLog(d.Logger), Recover(d.Logger))
}

// NewMux returns the bare route table
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	hh := HealthHandler{}
	mux.HandleFunc("/healthz", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Settings
	sh := SettingsHandler{Store: d.Store, Watcher: d.Watcher, Logger: d.Logger}
	mux.HandleFunc("/api/settings", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sh.Get,
		http.MethodPut: sh.Put,
	}))

	// Codes
	ch := CodesHandler{Store: d.Store, Logger: d.Logger}
	mux.HandleFunc("/api/codes", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.List,
	}))

	// Bot lifecycle
	bh := BotHandler{Store: d.Store, Watcher: d.Watcher, Logger: d.Logger}
	mux.HandleFunc("/api/bot/start", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: bh.Start,
	}))
	mux.HandleFunc("/api/bot/stop", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: bh.Stop,
	}))
	mux.HandleFunc("/api/bot/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: bh.Status,
	}))
	mux.HandleFunc("/api/test-connection", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: bh.TestConnection,
	}))

	return mux
}
