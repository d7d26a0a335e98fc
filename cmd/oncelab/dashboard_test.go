// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"code.hybscloud.com/once/internal/benchlab"
	"code.hybscloud.com/once/internal/history"
	"code.hybscloud.com/once/internal/log"
)

func apiRun(id string) benchlab.Run {
	return benchlab.Run{
		ID:        id,
		Date:      time.Date(2026, time.August, 10, 6, 30, 0, 0, time.UTC),
		Commit:    "abc1234",
		GoVersion: "go1.25.0",
		GOOS:      "linux",
		GOARCH:    "amd64",
		Results: []benchlab.Result{
			{Name: "CellGet", N: 1_000_000, NsPerOp: 2.5},
		},
	}
}

func TestDashboardAPI(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "lab.db"))
	require.NoError(t, err)
	defer store.Close()
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	ingest := history.NewIngestor(store, 8)
	ingest.Start(ctx)
	defer func() {
		cancel()
		ingest.Wait()
	}()

	d := &dashboard{store: store, ingest: ingest, limit: 10, logger: log.WithComponent("test")}
	router := d.router()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")

	body, err := json.Marshal(apiRun("run-1"))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "run-1")

	// The run becomes queryable once the writer picks it up.
	require.Eventually(t, func() bool {
		return get("/api/runs/run-1").Code == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	rec = get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "CellGet")

	rec = get("/api/benchmarks")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "CellGet")

	rec = get("/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []benchlab.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "abc1234", runs[0].Commit)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/runs/run-1", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, http.StatusNotFound, get("/api/runs/run-1").Code)
}

func TestDashboardRejects(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "lab.db"))
	require.NoError(t, err)
	defer store.Close()

	// Capacity 2 and no writer, so the third submit is refused.
	d := &dashboard{
		store:  store,
		ingest: history.NewIngestor(store, 2),
		limit:  10,
		logger: log.WithComponent("test"),
	}
	router := d.router()

	post := func(body []byte) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/runs", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusBadRequest, post([]byte("not json")).Code)

	for i, id := range []string{"run-1", "run-2"} {
		body, err := json.Marshal(apiRun(id))
		require.NoError(t, err)
		require.Equal(t, http.StatusAccepted, post(body).Code, "submit %d", i)
	}
	body, err := json.Marshal(apiRun("run-3"))
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, post(body).Code)

	get := func(path string) int {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}
	assert.Equal(t, http.StatusBadRequest, get("/counter/bogus"))
	assert.Equal(t, http.StatusBadRequest, get("/api/runs?limit=x"))
	assert.Equal(t, http.StatusNotFound, get("/api/runs/missing"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/runs/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
