package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/current.report/internal/adcp/ensemble"
	"github.com/banshee-data/current.report/internal/adcp/pipeline"
	"github.com/banshee-data/current.report/internal/db"
	"github.com/banshee-data/current.report/internal/monitoring"
	"github.com/banshee-data/current.report/internal/report"
	"github.com/banshee-data/current.report/internal/testutil"
	"github.com/banshee-data/current.report/internal/timeutil"
)

// setupServer returns a server over a fresh database holding one run with two
// stored profiles.
func setupServer(t *testing.T) (*Server, *db.Run) {
	t.Helper()
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(log.Printf) })

	store, err := db.NewDB(filepath.Join(t.TempDir(), "api.db"))
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { store.Close() })
	store.SetClock(timeutil.NewMockClock(time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)))

	results := []pipeline.Result{
		{Ensemble: testutil.NewEarthEnsemble(1, 3, [][]float64{{3, 4, 0, 0}, {1, 0, 0, 0}}), DepthScreenOK: true},
		{Ensemble: testutil.NewEarthEnsemble(2, 3, [][]float64{{0, 1, 0, 0}}), DepthScreenOK: true},
	}
	for _, r := range results {
		r.Ensemble.Ancillary.FirstBinRange = 1.0
		r.Ensemble.Ancillary.BinSize = 0.5
	}

	ctx := context.Background()
	run, err := store.CreateRun(ctx, "survey.jsonl", map[string]any{"heading_offset": 0})
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, store.RecordResults(ctx, run.ID, results))

	return NewServer(store, "mps"), run
}

func serve(s *Server, method, path string) *httpResponse {
	rec := testutil.NewTestRecorder()
	s.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(method, path))
	return &httpResponse{code: rec.Code, contentType: rec.Header().Get("Content-Type"), body: rec.Body.String()}
}

type httpResponse struct {
	code        int
	contentType string
	body        string
}

func TestListRuns(t *testing.T) {
	s, run := setupServer(t)

	resp := serve(s, http.MethodGet, "/api/runs")
	testutil.AssertStatusCode(t, resp.code, http.StatusOK)
	assert.Equal(t, "application/json", resp.contentType)

	var runs []db.Run
	require.NoError(t, json.Unmarshal([]byte(resp.body), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, 2, runs[0].Stats.Processed)
}

func TestShowRun(t *testing.T) {
	s, run := setupServer(t)

	resp := serve(s, http.MethodGet, "/api/runs/"+run.ID)
	testutil.AssertStatusCode(t, resp.code, http.StatusOK)

	var got db.Run
	require.NoError(t, json.Unmarshal([]byte(resp.body), &got))
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "survey.jsonl", got.Source)
	assert.JSONEq(t, `{"heading_offset":0}`, string(got.Config))
}

func TestShowRun_NotFound(t *testing.T) {
	s, _ := setupServer(t)

	for _, path := range []string{"/api/runs/nope", "/api/runs/nope/summary", "/charts/runs/nope"} {
		t.Run(path, func(t *testing.T) {
			resp := serve(s, http.MethodGet, path)
			testutil.AssertStatusCode(t, resp.code, http.StatusNotFound)
			assert.Contains(t, resp.body, "run not found")
		})
	}
}

func TestShowRunSummary(t *testing.T) {
	s, run := setupServer(t)

	resp := serve(s, http.MethodGet, "/api/runs/"+run.ID+"/summary")
	testutil.AssertStatusCode(t, resp.code, http.StatusOK)

	var summary report.Summary
	require.NoError(t, json.Unmarshal([]byte(resp.body), &summary))
	assert.Equal(t, "mps", summary.Units)
	assert.Equal(t, 2, summary.Ensembles)
	require.Len(t, summary.Bins, 3)
	assert.Equal(t, 2, summary.Bins[0].Samples)
	assert.InDelta(t, 3.0, summary.Bins[0].MeanSpeed, 1e-9)
	assert.InDelta(t, 1.5, summary.Bins[1].Range, 1e-9)
	assert.Zero(t, summary.Bins[2].Samples)
}

func TestShowRunSummary_Units(t *testing.T) {
	s, run := setupServer(t)

	resp := serve(s, http.MethodGet, "/api/runs/"+run.ID+"/summary?units=cmps")
	testutil.AssertStatusCode(t, resp.code, http.StatusOK)

	var summary report.Summary
	require.NoError(t, json.Unmarshal([]byte(resp.body), &summary))
	assert.Equal(t, "cmps", summary.Units)
	assert.InDelta(t, 300.0, summary.Bins[0].MeanSpeed, 1e-9)

	resp = serve(s, http.MethodGet, "/api/runs/"+run.ID+"/summary?units=furlongs")
	testutil.AssertStatusCode(t, resp.code, http.StatusBadRequest)
	assert.Contains(t, resp.body, "units")
}

func TestShowRunChart(t *testing.T) {
	s, run := setupServer(t)

	resp := serve(s, http.MethodGet, "/charts/runs/"+run.ID)
	testutil.AssertStatusCode(t, resp.code, http.StatusOK)
	assert.Equal(t, "text/html; charset=utf-8", resp.contentType)
	assert.Contains(t, resp.body, "mean speed")
	assert.Contains(t, resp.body, run.ID)
}

func TestShowConfig(t *testing.T) {
	s, _ := setupServer(t)

	resp := serve(s, http.MethodGet, "/api/config")
	testutil.AssertStatusCode(t, resp.code, http.StatusOK)

	var cfg map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resp.body), &cfg))
	assert.Equal(t, "mps", cfg["units"])
	assert.Contains(t, cfg, "version")
}

func TestMethodNotAllowed(t *testing.T) {
	s, run := setupServer(t)

	paths := []string{"/api/config", "/api/runs", "/api/runs/" + run.ID, "/api/runs/" + run.ID + "/summary", "/charts/runs/" + run.ID}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			resp := serve(s, http.MethodPost, path)
			testutil.AssertStatusCode(t, resp.code, http.StatusMethodNotAllowed)
		})
	}
}

type failingStore struct{}

func (failingStore) Runs(context.Context) ([]db.Run, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) GetRun(context.Context, string) (*db.Run, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) RunProfiles(context.Context, string) ([]db.Profile, error) {
	return nil, errors.New("disk on fire")
}

func TestStoreErrors(t *testing.T) {
	s := NewServer(failingStore{}, "mps")

	for _, path := range []string{"/api/runs", "/api/runs/x", "/api/runs/x/summary", "/charts/runs/x"} {
		t.Run(path, func(t *testing.T) {
			resp := serve(s, http.MethodGet, path)
			testutil.AssertStatusCode(t, resp.code, http.StatusInternalServerError)
			assert.True(t, strings.Contains(resp.body, "disk on fire"), resp.body)
		})
	}
}

func TestSummary_AllBadVelocity(t *testing.T) {
	monitoring.SetLogger(nil)
	defer monitoring.SetLogger(log.Printf)

	store, err := db.NewDB(filepath.Join(t.TempDir(), "bad.db"))
	testutil.AssertNoError(t, err)
	defer store.Close()

	ctx := context.Background()
	run, err := store.CreateRun(ctx, "", nil)
	testutil.AssertNoError(t, err)
	e := testutil.NewEarthEnsemble(1, 2, nil)
	testutil.AssertNoError(t, store.RecordResult(ctx, run.ID, 0, pipeline.Result{Ensemble: e, MaskedBins: 2, DepthScreenOK: true}))

	resp := serve(NewServer(store, "mps"), http.MethodGet, "/api/runs/"+run.ID+"/summary")
	testutil.AssertStatusCode(t, resp.code, http.StatusOK)

	var summary report.Summary
	require.NoError(t, json.Unmarshal([]byte(resp.body), &summary))
	require.Len(t, summary.Bins, 2)
	assert.Zero(t, summary.Bins[0].Samples)
	assert.Equal(t, ensemble.BadVelocity, e.EarthVelocity[0][0])
}

func TestLoggingMiddleware(t *testing.T) {
	log.SetFlags(0)
	defer log.SetFlags(log.LstdFlags)
	w := &strings.Builder{}
	log.SetOutput(w)
	defer log.SetOutput(os.Stderr)

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := testutil.NewTestRecorder()
	h.ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/api/runs?x=1"))

	logged := w.String()
	testutil.AssertStatusCode(t, rec.Code, http.StatusTeapot)
	assert.Contains(t, logged, "418")
	assert.Contains(t, logged, "/api/runs?x=1")
}
