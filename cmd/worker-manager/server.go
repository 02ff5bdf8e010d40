// cmd/worker-manager/server.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"obsp-workers/internal/common/logger"
	"obsp-workers/internal/scope/checkout"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// riskReviewer lists and resolves soft-completed purchases.
type riskReviewer interface {
	OpenRisks(ctx context.Context, limit int) ([]checkout.Attempt, error)
	ResolveRisk(ctx context.Context, attemptID string) (bool, error)
}

type routerDeps struct {
	zeebe    healthChecker
	postgres pinger
	redis    pinger
	risks    riskReviewer
	workers  func() []string
	logger   logger.Logger
}

func newRouter(d routerDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{}
		ready := true
		record := func(name string, err error) {
			if err != nil {
				checks[name] = err.Error()
				ready = false
				return
			}
			checks[name] = "ok"
		}
		record("zeebe", d.zeebe.HealthCheck(ctx))
		record("postgres", d.postgres.Ping(ctx))
		record("redis", d.redis.Ping(ctx))

		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		var workers []string
		if d.workers != nil {
			workers = d.workers()
		}
		writeJSON(w, code, map[string]interface{}{
			"status":  status,
			"checks":  checks,
			"workers": workers,
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /risks", func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > 500 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be between 1 and 500"})
				return
			}
			limit = n
		}

		risks, err := d.risks.OpenRisks(r.Context(), limit)
		if err != nil {
			d.logger.Error("failed to list open risks", map[string]interface{}{"error": err.Error()})
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list risks"})
			return
		}
		if risks == nil {
			risks = []checkout.Attempt{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"risks": risks})
	})

	mux.HandleFunc("POST /risks/{id}/resolve", func(w http.ResponseWriter, r *http.Request) {
		parsed, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "attempt id must be a UUID"})
			return
		}
		id := parsed.String()
		changed, err := d.risks.ResolveRisk(r.Context(), id)
		if err != nil {
			d.logger.Error("failed to resolve risk", map[string]interface{}{"attemptId": id, "error": err.Error()})
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to resolve risk"})
			return
		}
		if !changed {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no open risk for attempt"})
			return
		}
		d.logger.Info("risk resolved", map[string]interface{}{"attemptId": id})
		writeJSON(w, http.StatusOK, map[string]interface{}{"attemptId": id, "resolved": true})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
