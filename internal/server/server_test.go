package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/thread-analytics/internal/models"
	"github.com/xaenox/thread-analytics/internal/storage"
	"go.uber.org/zap"
)

func testServer(runner ReportRunner) (*Server, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	return New(store, runner, zap.NewNop()), store
}

func doRequest(t *testing.T, handler http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(nil)
	rec := doRequest(t, srv.Routes(), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetReport(t *testing.T) {
	srv, store := testServer(nil)
	id, err := store.SaveReport(context.Background(), &models.Report{
		Summary: models.Summary{TotalThreads: 7},
	})
	require.NoError(t, err)

	rec := doRequest(t, srv.Routes(), http.MethodGet, "/api/reports/"+id)
	require.Equal(t, http.StatusOK, rec.Code)

	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 7, report.Summary.TotalThreads)
}

func TestGetReportNotFound(t *testing.T) {
	srv, _ := testServer(nil)
	rec := doRequest(t, srv.Routes(), http.MethodGet, "/api/reports/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatestReport(t *testing.T) {
	srv, store := testServer(nil)

	rec := doRequest(t, srv.Routes(), http.MethodGet, "/api/reports/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := store.SaveReport(context.Background(), &models.Report{
		Summary: models.Summary{TotalThreads: 1},
	})
	require.NoError(t, err)
	_, err = store.SaveReport(context.Background(), &models.Report{
		Summary: models.Summary{TotalThreads: 2},
	})
	require.NoError(t, err)

	rec = doRequest(t, srv.Routes(), http.MethodGet, "/api/reports/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Summary.TotalThreads)
}

func TestListRuns(t *testing.T) {
	srv, store := testServer(nil)
	for i := 0; i < 3; i++ {
		_, err := store.SaveReport(context.Background(), &models.Report{})
		require.NoError(t, err)
	}

	rec := doRequest(t, srv.Routes(), http.MethodGet, "/api/reports/?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []storage.RunInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 2)
}

func TestRunEndpoint(t *testing.T) {
	runner := RunnerFunc(func(ctx context.Context) (*models.Report, error) {
		return &models.Report{Summary: models.Summary{TotalThreads: 4}}, nil
	})
	srv, store := testServer(runner)

	rec := doRequest(t, srv.Routes(), http.MethodPost, "/api/reports/run")
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		ID      string         `json:"id"`
		Summary models.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.ID)
	assert.Equal(t, 4, body.Summary.TotalThreads)

	saved, err := store.GetReport(context.Background(), body.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, saved.Summary.TotalThreads)
}

func TestRunEndpointFailure(t *testing.T) {
	runner := RunnerFunc(func(ctx context.Context) (*models.Report, error) {
		return nil, errors.New("remote API unreachable")
	})
	srv, _ := testServer(runner)

	rec := doRequest(t, srv.Routes(), http.MethodPost, "/api/reports/run")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRunEndpointWithoutRunner(t *testing.T) {
	srv, _ := testServer(nil)
	rec := doRequest(t, srv.Routes(), http.MethodPost, "/api/reports/run")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
