// Package alerts exposes the alert status API consumed by municipality
// dashboards and operators.
package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/acasal/alertd/core/model"
	"github.com/acasal/alertd/core/store"
)

// Resolver closes the lifecycle of an alert. The dispatch engine is the
// production implementation.
type Resolver interface {
	Resolve(ctx context.Context, alertID int64) (bool, error)
}

type resolveResponse struct {
	AlertID  int64 `json:"alert_id"`
	Released bool  `json:"released"`
}

// NewHandler returns an HTTP handler exposing alerts via:
//
//	GET  /api/alerts            list alerts, optionally filtered by ?state= and ?limit=
//	GET  /api/alerts/{id}       fetch one alert
//	POST /api/alerts/{id}/resolve  mark an alert resolved
//
// Requests must include an Authorization header with "Bearer <token>" when
// token is non-empty.
func NewHandler(st store.Store, res Resolver, token string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/alerts", func(w http.ResponseWriter, r *http.Request) {
		f := store.AlertFilter{}
		if s := r.URL.Query().Get("state"); s != "" {
			state := model.AlertState(s)
			if !state.Valid() {
				http.Error(w, "unknown state", http.StatusBadRequest)
				return
			}
			f.State = state
		}
		if s := r.URL.Query().Get("limit"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				f.Limit = n
			}
		}
		list, err := st.ListAlerts(r.Context(), f)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, list)
	})
	mux.HandleFunc("GET /api/alerts/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := alertID(w, r)
		if !ok {
			return
		}
		a, err := st.GetAlert(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "alert not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, a)
	})
	mux.HandleFunc("POST /api/alerts/{id}/resolve", func(w http.ResponseWriter, r *http.Request) {
		id, ok := alertID(w, r)
		if !ok {
			return
		}
		released, err := res.Resolve(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "alert not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, resolveResponse{AlertID: id, Released: released})
	})

	return withBearer(token, mux)
}

func alertID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid alert id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func withBearer(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
