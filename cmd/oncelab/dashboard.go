// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/felixge/fgprof"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"code.hybscloud.com/once/internal/benchlab"
	"code.hybscloud.com/once/internal/history"
	"code.hybscloud.com/once/internal/perfcount"
	"code.hybscloud.com/once/internal/report"
)

const maxRunBytes = 1 << 20

// dashboard is the HTTP surface over the run history: chart pages for
// browsers, a JSON API for the runner and tooling.
type dashboard struct {
	store  *history.Store
	ingest *history.Ingestor
	limit  int
	logger zerolog.Logger
}

func (d *dashboard) router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(d.logRequests)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", d.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Mount("/debug", chimw.Profiler())
	r.Method(http.MethodGet, "/debug/fgprof", fgprof.Handler())

	r.Get("/", d.handleTimingPage)
	r.Get("/alloc", d.handleAllocPage)
	r.Get("/counter/{event}", d.handleCounterPage)

	r.Route("/api", func(api chi.Router) {
		api.Get("/runs", d.handleListRuns)
		api.Post("/runs", d.handleIngest)
		api.Get("/runs/{id}", d.handleGetRun)
		api.Delete("/runs/{id}", d.handleDeleteRun)
		api.Get("/benchmarks", d.handleBenchNames)
	})
	return r
}

// logRequests emits one line per request. Health and scrape endpoints
// are skipped to keep the log readable.
func (d *dashboard) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		d.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (d *dashboard) handleHealth(w http.ResponseWriter, r *http.Request) {
	d.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (d *dashboard) handleTimingPage(w http.ResponseWriter, r *http.Request) {
	d.renderPage(w, r, report.TimingPage)
}

func (d *dashboard) handleAllocPage(w http.ResponseWriter, r *http.Request) {
	d.renderPage(w, r, report.AllocPage)
}

func (d *dashboard) handleCounterPage(w http.ResponseWriter, r *http.Request) {
	events, err := perfcount.ParseEvents([]string{chi.URLParam(r, "event")})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	event := events[0]
	d.renderPage(w, r, func(runs []benchlab.Run) *components.Page {
		return report.CounterPage(runs, event)
	})
}

func (d *dashboard) renderPage(w http.ResponseWriter, r *http.Request, build func([]benchlab.Run) *components.Page) {
	runs, err := d.store.Runs(r.Context(), d.limit)
	if err != nil {
		d.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := build(runs).Render(w); err != nil {
		d.logger.Error().Err(err).Str("path", r.URL.Path).Msg("page render failed")
	}
}

func (d *dashboard) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := d.limit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	runs, err := d.store.Runs(r.Context(), limit)
	if err != nil {
		d.internalError(w, r, err)
		return
	}
	if runs == nil {
		runs = []benchlab.Run{}
	}
	d.writeJSON(w, http.StatusOK, runs)
}

func (d *dashboard) handleIngest(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var run benchlab.Run
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRunBytes))
	if err := dec.Decode(&run); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Date.IsZero() {
		run.Date = time.Now().UTC()
	}

	if err := d.ingest.Submit(run); err != nil {
		http.Error(w, "ingest queue full", http.StatusServiceUnavailable)
		return
	}
	d.writeJSON(w, http.StatusAccepted, map[string]string{"id": run.ID})
}

func (d *dashboard) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := d.store.Run(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, history.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		d.internalError(w, r, err)
		return
	}
	d.writeJSON(w, http.StatusOK, run)
}

func (d *dashboard) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	err := d.store.DeleteRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, history.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		d.internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (d *dashboard) handleBenchNames(w http.ResponseWriter, r *http.Request) {
	names, err := d.store.BenchNames(r.Context())
	if err != nil {
		d.internalError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	d.writeJSON(w, http.StatusOK, names)
}

func (d *dashboard) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		d.logger.Error().Err(err).Msg("response encode failed")
	}
}

func (d *dashboard) internalError(w http.ResponseWriter, r *http.Request, err error) {
	d.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}
