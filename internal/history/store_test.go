// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"code.hybscloud.com/once/internal/benchlab"
	"code.hybscloud.com/once/internal/perfcount"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "lab.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// sampleRun builds a run dated to the given August day. Counters are
// listed in event order because that is how they load back.
func sampleRun(id string, day int, ns float64) benchlab.Run {
	return benchlab.Run{
		ID:        id,
		Date:      time.Date(2026, time.August, day, 6, 30, 0, 0, time.UTC),
		Commit:    fmt.Sprintf("abc%04d", day),
		GoVersion: "go1.25.0",
		GOOS:      "linux",
		GOARCH:    "amd64",
		CPU:       "AMD EPYC 9454",
		Host:      "lab-01",
		Results: []benchlab.Result{
			{
				Name:        "CellGet",
				N:           1_000_000,
				NsPerOp:     ns,
				AllocsPerOp: 0,
				BytesPerOp:  0,
				Counters: []benchlab.Counter{
					{Event: perfcount.Cycles, PerOp: 4.2, Total: 4_200_000},
					{Event: perfcount.Instructions, PerOp: 12.5, Total: 12_500_000, Scaled: true},
				},
			},
			{Name: "FlagDo", N: 500_000, NsPerOp: 2 * ns, AllocsPerOp: 1, BytesPerOp: 16},
		},
	}
}

func TestOpenMigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lab.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveRun(context.Background(), sampleRun("run-1", 10, 25)))
	require.NoError(t, s.Close())

	// Reopening must keep existing data and not rerun the migration.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.CountRuns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSaveRunRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	want := sampleRun("run-1", 10, 25)
	require.NoError(t, s.SaveRun(ctx, want))

	got, err := s.Run(ctx, "run-1")
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("run mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveRunReplaces(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, sampleRun("run-1", 10, 25)))
	require.NoError(t, s.SaveRun(ctx, sampleRun("run-1", 10, 20)))

	n, err := s.CountRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Run(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.Results[0].NsPerOp)

	// The replacing save must not leave orphaned children behind.
	var counters int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM counters").Scan(&counters))
	assert.Equal(t, 2, counters)
}

func TestDeleteRunCascades(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, sampleRun("run-1", 10, 25)))
	require.NoError(t, s.DeleteRun(ctx, "run-1"))

	for _, table := range []string{"runs", "results", "counters"} {
		var n int
		require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		assert.Zero(t, n, table)
	}

	assert.ErrorIs(t, s.DeleteRun(ctx, "run-1"), ErrNotFound)
}

func TestRunNotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.Run(context.Background(), "no-such-run")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunsOrderAndLimit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// Saved out of date order on purpose.
	for _, day := range []int{12, 10, 14} {
		run := sampleRun(fmt.Sprintf("run-%d", day), day, float64(day))
		require.NoError(t, s.SaveRun(ctx, run))
	}

	all, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"run-10", "run-12", "run-14"}, runIDs(all))

	latest, err := s.Runs(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-12", "run-14"}, runIDs(latest))
}

func runIDs(runs []benchlab.Run) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}

func TestSeries(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, day := range []int{10, 12, 14} {
		run := sampleRun(fmt.Sprintf("run-%d", day), day, float64(day))
		require.NoError(t, s.SaveRun(ctx, run))
	}

	full, err := s.Series(ctx, "CellGet", 0)
	require.NoError(t, err)
	require.Len(t, full, 3)
	assert.Equal(t, []float64{10, 12, 14}, pointValues(full))
	assert.Equal(t, "abc0010", full[0].Commit)
	assert.True(t, full[0].Date.Before(full[1].Date))

	// A limited series keeps the newest points, still oldest first.
	tail, err := s.Series(ctx, "CellGet", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{12, 14}, pointValues(tail))

	empty, err := s.Series(ctx, "NoSuchBench", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCounterSeries(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, day := range []int{10, 12} {
		run := sampleRun(fmt.Sprintf("run-%d", day), day, float64(day))
		require.NoError(t, s.SaveRun(ctx, run))
	}

	points, err := s.CounterSeries(ctx, "CellGet", perfcount.Instructions, 0)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, []float64{12.5, 12.5}, pointValues(points))

	// FlagDo carries no counters in the sample runs.
	points, err = s.CounterSeries(ctx, "FlagDo", perfcount.Instructions, 0)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func pointValues(points []Point) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values
}

func TestBenchNames(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, sampleRun("run-1", 10, 25)))
	require.NoError(t, s.SaveRun(ctx, sampleRun("run-2", 12, 24)))

	names, err := s.BenchNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"CellGet", "FlagDo"}, names)
}
