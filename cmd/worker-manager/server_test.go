// cmd/worker-manager/server_test.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"obsp-workers/internal/common/database"
	"obsp-workers/internal/common/logger"
	"obsp-workers/internal/scope/checkout"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPing struct{ err error }

func (s stubPing) Ping(ctx context.Context) error        { return s.err }
func (s stubPing) HealthCheck(ctx context.Context) error { return s.err }

func newTestRouter(t *testing.T, redisErr error) (http.Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewTestLogger(t)
	return newRouter(routerDeps{
		zeebe:    stubPing{},
		postgres: stubPing{},
		redis:    stubPing{err: redisErr},
		risks:    checkout.NewLedger(database.NewPostgresFromDB(db), log),
		workers:  func() []string { return []string{"obsp-checkout"} },
		logger:   log,
	}), mock
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestRouter_Ready(t *testing.T) {
	t.Run("all dependencies up", func(t *testing.T) {
		router, _ := newTestRouter(t, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ready", body["status"])
		assert.Equal(t, []interface{}{"obsp-checkout"}, body["workers"])
	})

	t.Run("redis down", func(t *testing.T) {
		router, _ := newTestRouter(t, errors.New("dial tcp: connection refused"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "connection refused")
	})
}

func TestRouter_Risks(t *testing.T) {
	router, mock := newTestRouter(t, nil)

	mock.ExpectQuery("SELECT (.+) FROM checkout_attempts").WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "package_id", "level_key", "outcome", "total_amount",
			"available_balance", "draft_id", "error_code", "warnings", "created_at"}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/risks?limit=5", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"risks": []}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/risks?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouter_ResolveRisk(t *testing.T) {
	const attemptID = "0b7d8a3e-0000-4000-8000-000000000001"

	tests := []struct {
		name     string
		path     string
		rows     int64
		wantCode int
	}{
		{name: "resolved", path: "/risks/" + attemptID + "/resolve", rows: 1, wantCode: http.StatusOK},
		{name: "already resolved", path: "/risks/" + attemptID + "/resolve", rows: 0, wantCode: http.StatusNotFound},
		{name: "not a uuid", path: "/risks/a-1/resolve", rows: -1, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, mock := newTestRouter(t, nil)
			if tt.rows >= 0 {
				mock.ExpectExec("UPDATE checkout_attempts SET risk_resolved_at").
					WithArgs(attemptID, sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(0, tt.rows))
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.NoError(t, mock.ExpectationsWereMet(), "invalid ids never reach postgres")
		})
	}
}
