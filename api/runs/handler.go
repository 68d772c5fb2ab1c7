// Package runs exposes stored optimisation runs over HTTP.
package runs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/hydrothermal/core/model"
	"github.com/kilianp07/hydrothermal/infra/store"
)

// RunReader is the read side of the run store.
type RunReader interface {
	ListRuns(ctx context.Context, limit int) ([]string, error)
	LoadRun(ctx context.Context, id string) (store.Run, error)
}

// RunView is the JSON form of a stored run.
type RunView struct {
	ID          string           `json:"id"`
	StartedAt   time.Time        `json:"started_at"`
	State       string           `json:"state"`
	Iterations  int              `json:"iterations"`
	Delta       float64          `json:"delta"`
	WaterValues []float64        `json:"water_values,omitempty"`
	Trajectory  model.Trajectory `json:"trajectory,omitempty"`
}

// NewHandler returns a handler serving GET /api/runs and GET /api/runs/{id}.
// Requests must include an Authorization header with "Bearer <token>" when
// token is non-empty.
func NewHandler(rs RunReader, token string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/runs", func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		ids, err := rs.ListRuns(r.Context(), limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		views := make([]RunView, 0, len(ids))
		for _, id := range ids {
			run, err := rs.LoadRun(r.Context(), id)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			v := view(run)
			v.WaterValues, v.Trajectory.Periods = nil, nil
			views = append(views, v)
		}
		writeJSON(w, views)
	})
	mux.HandleFunc("GET /api/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		run, err := rs.LoadRun(r.Context(), r.PathValue("id"))
		if errors.Is(err, store.ErrRunNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, view(run))
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func view(r store.Run) RunView {
	return RunView{
		ID:          r.ID,
		StartedAt:   r.StartedAt,
		State:       r.State.String(),
		Iterations:  r.Iterations,
		Delta:       r.Delta,
		WaterValues: r.WaterValues,
		Trajectory:  r.Trajectory,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
