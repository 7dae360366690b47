// Package api serves stored processing runs over HTTP.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/current.report/internal/db"
	"github.com/banshee-data/current.report/internal/httputil"
	"github.com/banshee-data/current.report/internal/report"
	"github.com/banshee-data/current.report/internal/units"
	"github.com/banshee-data/current.report/internal/version"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// RunStore is the read side of the run database.
type RunStore interface {
	Runs(ctx context.Context) ([]db.Run, error)
	GetRun(ctx context.Context, runID string) (*db.Run, error)
	RunProfiles(ctx context.Context, runID string) ([]db.Profile, error)
}

type Server struct {
	store RunStore
	units string
}

// NewServer returns a Server reading from store. Summaries default to
// displayUnits unless a request asks for others.
func NewServer(store RunStore, displayUnits string) *Server {
	return &Server{
		store: store,
		units: displayUnits,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/runs", s.listRuns)
	mux.HandleFunc("/api/runs/{id}", s.showRun)
	mux.HandleFunc("/api/runs/{id}/summary", s.showRunSummary)
	mux.HandleFunc("/charts/runs/{id}", s.showRunChart)
	return mux
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"units":       s.units,
		"valid_units": units.ValidUnits,
		"version":     version.Version,
		"git_sha":     version.GitSHA,
	})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	runs, err := s.store.Runs(r.Context())
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve runs: %v", err))
		return
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) showRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	run, err := s.store.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	httputil.WriteJSONOK(w, run)
}

func (s *Server) showRunSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	summary, ok := s.summarize(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, summary)
}

func (s *Server) showRunChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	summary, ok := s.summarize(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.RenderChart(&buf, summary, "Run "+r.PathValue("id")); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to render chart: %v", err))
		return
	}
	httputil.WriteHTML(w, buf.Bytes())
}

// summarize loads the run's profiles and computes the summary in the units
// requested by the "units" query parameter. It writes the error response and
// returns false on failure.
func (s *Server) summarize(w http.ResponseWriter, r *http.Request) (*report.Summary, bool) {
	displayUnits := s.units
	if u := r.URL.Query().Get("units"); u != "" {
		if !units.IsValid(u) {
			httputil.BadRequest(w, fmt.Sprintf("Invalid 'units' parameter, must be one of %s", units.GetValidUnitsString()))
			return nil, false
		}
		displayUnits = u
	}

	profiles, err := s.store.RunProfiles(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return nil, false
	}

	summary, err := report.SummarizeProfiles(report.FromStored(profiles), displayUnits)
	if err != nil && !errors.Is(err, report.ErrNoData) {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to summarise run: %v", err))
		return nil, false
	}
	return summary, true
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrRunNotFound) {
		httputil.NotFound(w, "run not found")
		return
	}
	httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve run: %v", err))
}
