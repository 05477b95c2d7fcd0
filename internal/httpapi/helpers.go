package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
)

func methodMux(m map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := m[r.Method]; ok {
			h(w, r)
			return
		}
		writeError(w, r, CodeMethodNotAllowed, r.Method+" is not allowed on "+r.URL.Path)
	}
}

// decodeJSON decodes a single JSON value, rejecting unknown fields and trailing data
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data")
	}
	return nil
}
