// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"code.hybscloud.com/once/internal/benchlab"
	"code.hybscloud.com/once/internal/cachesim"
	"code.hybscloud.com/once/internal/objdump"
	"code.hybscloud.com/once/internal/perfcount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labRun(commitHash string, day int, ns float64) benchlab.Run {
	return benchlab.Run{
		ID:        "run-" + commitHash,
		Date:      time.Date(2026, time.August, day, 6, 30, 0, 0, time.UTC),
		Commit:    commitHash,
		GoVersion: "go1.25.0",
		GOOS:      "linux",
		GOARCH:    "amd64",
		CPU:       "AMD EPYC 9454",
		Host:      "lab-01",
		Results: []benchlab.Result{
			{
				Name:    "CellGet",
				N:       1_000_000,
				NsPerOp: ns,
				Counters: []benchlab.Counter{
					{Event: perfcount.Cycles, PerOp: 4.2, Total: 4_200_000},
					{Event: perfcount.Instructions, PerOp: 12.5, Total: 12_500_000},
					{Event: perfcount.CacheReferences, PerOp: 2, Total: 2_000_000},
					{Event: perfcount.CacheMisses, PerOp: 0.01, Total: 10_000, Scaled: true},
				},
			},
			{Name: "FlagDo", N: 500_000, NsPerOp: 2 * ns, AllocsPerOp: 1, BytesPerOp: 16},
		},
	}
}

func TestWriteRun(t *testing.T) {
	var buf bytes.Buffer
	WriteRun(&buf, labRun("abc1234", 10, 2.5))
	out := buf.String()

	assert.Contains(t, out, "abc1234")
	assert.Contains(t, out, "go1.25.0 linux/amd64")
	assert.Contains(t, out, "BENCHMARK")
	assert.Contains(t, out, "CellGet")
	assert.Contains(t, out, "1,000,000")
	assert.Contains(t, out, "2.50")
}

func TestWriteCounters(t *testing.T) {
	var buf bytes.Buffer
	WriteCounters(&buf, labRun("abc1234", 10, 2.5))
	out := buf.String()

	assert.Contains(t, out, "CellGet")
	assert.Contains(t, out, "instructions")
	// 12.5M instructions over 4.2M cycles.
	assert.Contains(t, out, "2.98 insn per cycle")
	// 10k misses out of 2M references.
	assert.Contains(t, out, "0.50% of all cache refs")
	assert.Contains(t, out, "(scaled)")
	assert.Contains(t, out, "4,200,000")

	// FlagDo has no counters and must not open a block.
	assert.NotContains(t, out, "FlagDo")
}

func TestWriteComparison(t *testing.T) {
	prev := labRun("abc0001", 10, 2.0)
	curr := labRun("abc0002", 11, 2.2) // +10% on CellGet, FlagDo follows

	var buf bytes.Buffer
	WriteComparison(&buf, prev, curr, benchlab.DefaultThreshold)
	out := buf.String()

	assert.Contains(t, out, "abc0001")
	assert.Contains(t, out, "abc0002")
	assert.Contains(t, out, "VERDICT")
	assert.Contains(t, out, "worse")
	assert.Contains(t, out, "+10.00%")
	assert.Contains(t, out, "2 benchmark(s) regressed")
}

func TestWriteComparisonClean(t *testing.T) {
	run := labRun("abc0001", 10, 2.0)

	var buf bytes.Buffer
	WriteComparison(&buf, run, run, benchlab.DefaultThreshold)
	out := buf.String()

	assert.Contains(t, out, "no regressions beyond 3.00%")
	assert.NotContains(t, out, "counter changes")
}

func TestWriteComparisonNoOverlap(t *testing.T) {
	prev := labRun("abc0001", 10, 2.0)
	curr := labRun("abc0002", 11, 2.0)
	curr.Results = []benchlab.Result{{Name: "Other", N: 1, NsPerOp: 1}}

	var buf bytes.Buffer
	WriteComparison(&buf, prev, curr, benchlab.DefaultThreshold)

	assert.Contains(t, buf.String(), "no benchmarks in common")
}

func TestWriteSample(t *testing.T) {
	s := perfcount.Sample{
		Wall: 1234567890 * time.Nanosecond,
		Counts: []perfcount.Count{
			{Event: perfcount.TaskClock, Value: 2_469_135_780},
			{Event: perfcount.Cycles, Value: 4_200_000_000},
			{Event: perfcount.Instructions, Value: 12_500_000_000},
			{Event: perfcount.CacheReferences, Value: 10_000_000},
			{Event: perfcount.CacheMisses, Value: 500_000,
				Scaled: true, Enabled: 4 * time.Second, Running: 2 * time.Second},
		},
		KernelExcluded: true,
	}

	var buf bytes.Buffer
	WriteSample(&buf, s)
	out := buf.String()

	assert.Contains(t, out, "kernel excluded")
	assert.Contains(t, out, "2.000 CPUs utilized")
	assert.Contains(t, out, "4,200,000,000")
	assert.Contains(t, out, "2.98 insn per cycle")
	assert.Contains(t, out, "5.00% of all cache refs")
	assert.Contains(t, out, "(scaled from 50%)")
	assert.Contains(t, out, "1.234567890 seconds time elapsed")
}

func TestWriteCacheStats(t *testing.T) {
	st := cachesim.Stats{
		Ir: 409_600, I1mr: 16, ILmr: 16,
		Dr: 1_000, D1mr: 100, DLmr: 10,
		Dw: 500, D1mw: 50, DLmw: 5,
	}

	var buf bytes.Buffer
	WriteCacheStats(&buf, "inlined body", st)
	out := buf.String()

	assert.Contains(t, out, "inlined body")
	assert.Contains(t, out, "409,600")
	assert.Contains(t, out, "I1  miss rate:")
	// 150 D1 misses out of 1,500 accesses.
	assert.Contains(t, out, "10.00%")
	assert.Contains(t, out, "(1,000 rd + 500 wr)")
	// LL refs: I1mr + D1mr + D1mw = 166; misses: 16+10+5 = 31.
	assert.Contains(t, out, "166")
	assert.Contains(t, out, "31")
}

func TestWriteSymbols(t *testing.T) {
	syms := []objdump.Symbol{
		{Name: "code.hybscloud.com/once.(*Flag).Do", Bytes: 21, Instructions: 7},
		{Name: "code.hybscloud.com/once.(*Flag).doSlow", Bytes: 1234, Instructions: 400,
			CallTargets: []string{"runtime.morestack_noctxt"}},
	}

	var buf bytes.Buffer
	WriteSymbols(&buf, syms)
	out := buf.String()

	assert.Contains(t, out, "SYMBOL")
	assert.Contains(t, out, "(*Flag).Do")
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "1,255")
	assert.Contains(t, out, "407")
}

func TestGroupResults(t *testing.T) {
	runs := []benchlab.Run{labRun("abc0001", 10, 2.0), labRun("abc0002", 11, 2.1)}

	series := groupResults(runs)
	require.Len(t, series, 2)
	assert.Equal(t, "CellGet", series[0].name)
	assert.Equal(t, []string{"abc0001", "abc0002"}, series[0].labels)
	assert.Equal(t, 2.1, series[0].results[1].NsPerOp)
}

func TestTimingPageRenders(t *testing.T) {
	runs := []benchlab.Run{labRun("abc0001", 10, 2.0), labRun("abc0002", 11, 2.1)}

	var buf bytes.Buffer
	require.NoError(t, TimingPage(runs).Render(&buf))

	out := buf.String()
	assert.Contains(t, out, "CellGet")
	assert.Contains(t, out, "FlagDo")
	assert.Contains(t, out, "ns/op")
}

func TestAllocPageRenders(t *testing.T) {
	runs := []benchlab.Run{labRun("abc0001", 10, 2.0)}

	var buf bytes.Buffer
	require.NoError(t, AllocPage(runs).Render(&buf))
	assert.Contains(t, buf.String(), "allocs/op")
}

func TestCounterPageSkipsUncounted(t *testing.T) {
	runs := []benchlab.Run{labRun("abc0001", 10, 2.0)}

	var buf bytes.Buffer
	require.NoError(t, CounterPage(runs, perfcount.Instructions).Render(&buf))
	out := buf.String()
	assert.Contains(t, out, "CellGet")
	// FlagDo never counted instructions, so it gets no chart.
	assert.False(t, strings.Contains(out, "FlagDo"))
}
