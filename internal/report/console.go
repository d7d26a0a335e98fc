// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package report renders benchmark runs for terminals and browsers:
// tabular summaries, perf-stat style counter blocks, comparison verdicts
// and chart pages for the dashboard.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"code.hybscloud.com/once/internal/benchlab"
	"code.hybscloud.com/once/internal/cachesim"
	"code.hybscloud.com/once/internal/objdump"
	"code.hybscloud.com/once/internal/perfcount"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

var (
	colorBold  = color.New(color.Bold).SprintFunc()
	colorGreen = color.New(color.FgGreen).SprintfFunc()
	colorRed   = color.New(color.FgRed, color.Bold).SprintfFunc()
	colorFaint = color.New(color.Faint).SprintfFunc()
)

// WriteRun prints the run environment and a timing table.
func WriteRun(w io.Writer, run benchlab.Run) {
	fmt.Fprintf(w, "%s  %s\n", colorBold(run.Label()), run.Date.Format(time.RFC1123))
	fmt.Fprintf(w, "%s %s/%s", run.GoVersion, run.GOOS, run.GOARCH)
	if run.CPU != "" {
		fmt.Fprintf(w, "  %s", run.CPU)
	}
	if run.Host != "" {
		fmt.Fprintf(w, "  host=%s", run.Host)
	}
	fmt.Fprint(w, "\n\n")

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "BENCHMARK\tITERATIONS\tNS/OP\tB/OP\tALLOCS/OP")
	for _, res := range run.Results {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%d\t%d\n",
			res.Name, humanize.Comma(int64(res.N)), res.NsPerOp, res.BytesPerOp, res.AllocsPerOp)
	}
	tw.Flush()
}

// WriteCounters prints one perf-stat style block per benchmark that
// carries hardware counters.
func WriteCounters(w io.Writer, run benchlab.Run) {
	for _, res := range run.Results {
		if len(res.Counters) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", colorBold(res.Name))

		tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
		fmt.Fprintln(tw, "EVENT\tPER OP\tTOTAL\tNOTES")
		for _, c := range res.Counters {
			notes := annotation(res, c)
			if c.Scaled {
				if notes != "" {
					notes += "  "
				}
				notes += colorFaint("(scaled)")
			}
			fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\n",
				c.Event, c.PerOp, humanize.Comma(int64(c.Total)), notes)
		}
		tw.Flush()
	}
}

// annotation derives the ratio perf stat would print next to the event,
// when the base event was counted too.
func annotation(res benchlab.Result, c benchlab.Counter) string {
	ratio := func(base perfcount.Event, what string) string {
		b, ok := res.Counter(base)
		if !ok || b.Total == 0 {
			return ""
		}
		return fmt.Sprintf("%.2f%% of all %s", 100*float64(c.Total)/float64(b.Total), what)
	}

	switch c.Event {
	case perfcount.Instructions:
		if ipc := res.IPC(); ipc > 0 {
			return fmt.Sprintf("%.2f insn per cycle", ipc)
		}
	case perfcount.CacheMisses:
		return ratio(perfcount.CacheReferences, "cache refs")
	case perfcount.BranchMisses:
		return ratio(perfcount.Branches, "branches")
	case perfcount.L1DLoadMisses:
		return ratio(perfcount.L1DLoads, "L1-dcache accesses")
	}
	return ""
}

// WriteComparison compares two runs and prints the verdict table, the
// counter movements beyond the threshold and a one line summary.
func WriteComparison(w io.Writer, prev, curr benchlab.Run, threshold float64) {
	fmt.Fprintf(w, "%s vs %s\n\n", colorBold(prev.Label()), colorBold(curr.Label()))

	comps := benchlab.Compare(prev, curr)
	if len(comps) == 0 {
		fmt.Fprintln(w, "no benchmarks in common")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "BENCHMARK\tOLD NS/OP\tNEW NS/OP\tDELTA\tVERDICT")
	for _, c := range comps {
		verdict := string(c.Verdict(threshold))
		switch c.Verdict(threshold) {
		case benchlab.VerdictWorse:
			verdict = colorRed("%s", verdict)
		case benchlab.VerdictBetter:
			verdict = colorGreen("%s", verdict)
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%+.2f%%\t%s\n",
			c.Name, c.Prev.NsPerOp, c.Curr.NsPerOp, c.NsPerOpDiff, verdict)
	}
	tw.Flush()

	writeCounterDiffs(w, comps, threshold)

	fmt.Fprintln(w)
	if regressions := benchlab.Regressions(comps, threshold); len(regressions) > 0 {
		fmt.Fprintln(w, colorRed("%d benchmark(s) regressed beyond %.2f%%", len(regressions), threshold))
	} else {
		fmt.Fprintln(w, colorGreen("no regressions beyond %.2f%%", threshold))
	}
}

func writeCounterDiffs(w io.Writer, comps []benchlab.Comparison, threshold float64) {
	var header bool
	for _, c := range comps {
		for _, d := range c.CounterDiffs {
			if d.Diff < threshold && d.Diff > -threshold {
				continue
			}
			if !header {
				fmt.Fprintf(w, "\ncounter changes beyond %.2f%%:\n", threshold)
				header = true
			}
			fmt.Fprintf(w, "  %-28s %-24s %+8.2f%%  (%.2f to %.2f per op)\n",
				c.Name, d.Event, d.Diff, d.Prev, d.Curr)
		}
	}
}

// WriteSample prints a perf-stat style block for one measured region.
func WriteSample(w io.Writer, s perfcount.Sample) {
	fmt.Fprintln(w)
	if s.KernelExcluded {
		fmt.Fprintf(w, " %s\n\n", colorFaint("kernel excluded: counting user space only"))
	}
	for _, c := range s.Counts {
		note := sampleAnnotation(s, c)
		if c.Scaled && c.Enabled > 0 {
			if note != "" {
				note += "  "
			}
			note += colorFaint("(scaled from %.0f%%)", 100*float64(c.Running)/float64(c.Enabled))
		}
		if note != "" {
			fmt.Fprintf(w, " %18s      %-28s # %s\n", humanize.Comma(int64(c.Value)), c.Event, note)
		} else {
			fmt.Fprintf(w, " %18s      %s\n", humanize.Comma(int64(c.Value)), c.Event)
		}
	}
	fmt.Fprintf(w, "\n %.9f seconds time elapsed\n", s.Wall.Seconds())
}

func sampleAnnotation(s perfcount.Sample, c perfcount.Count) string {
	switch c.Event {
	case perfcount.Instructions:
		if ipc, ok := s.IPC(); ok {
			return fmt.Sprintf("%.2f insn per cycle", ipc)
		}
	case perfcount.CacheMisses:
		if r, ok := s.MissRatio(perfcount.CacheMisses, perfcount.CacheReferences); ok {
			return fmt.Sprintf("%.2f%% of all cache refs", 100*r)
		}
	case perfcount.BranchMisses:
		if r, ok := s.MissRatio(perfcount.BranchMisses, perfcount.Branches); ok {
			return fmt.Sprintf("%.2f%% of all branches", 100*r)
		}
	case perfcount.L1DLoadMisses:
		if r, ok := s.MissRatio(perfcount.L1DLoadMisses, perfcount.L1DLoads); ok {
			return fmt.Sprintf("%.2f%% of all L1-dcache accesses", 100*r)
		}
	case perfcount.LLCLoadMisses:
		if r, ok := s.MissRatio(perfcount.LLCLoadMisses, perfcount.LLCLoads); ok {
			return fmt.Sprintf("%.2f%% of all LLC loads", 100*r)
		}
	case perfcount.TaskClock:
		// task-clock counts nanoseconds of CPU time.
		if s.Wall > 0 {
			return fmt.Sprintf("%.3f CPUs utilized", float64(c.Value)/float64(s.Wall.Nanoseconds()))
		}
	}
	return ""
}

// WriteCacheStats prints one simulated scenario in the layout of a
// cachegrind summary.
func WriteCacheStats(w io.Writer, name string, st cachesim.Stats) {
	comma := func(v uint64) string { return humanize.Comma(int64(v)) }

	fmt.Fprintf(w, "%s\n", colorBold(name))
	fmt.Fprintf(w, "  I   refs:      %14s\n", comma(st.Ir))
	fmt.Fprintf(w, "  I1  misses:    %14s\n", comma(st.I1mr))
	fmt.Fprintf(w, "  LLi misses:    %14s\n", comma(st.ILmr))
	fmt.Fprintf(w, "  I1  miss rate: %13.2f%%\n", 100*st.I1MissRate())
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  D   refs:      %14s  (%s rd + %s wr)\n",
		comma(st.DataAccesses()), comma(st.Dr), comma(st.Dw))
	fmt.Fprintf(w, "  D1  misses:    %14s  (%s rd + %s wr)\n",
		comma(st.D1mr+st.D1mw), comma(st.D1mr), comma(st.D1mw))
	fmt.Fprintf(w, "  D1  miss rate: %13.2f%%\n", 100*st.D1MissRate())
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  LL  refs:      %14s\n", comma(st.LLRefs()))
	fmt.Fprintf(w, "  LL  misses:    %14s\n", comma(st.LLMisses()))
	fmt.Fprintf(w, "  LL  miss rate: %13.2f%%\n", 100*st.LLMissRate())
}

// WriteSymbols prints a code-size table with per-symbol byte and
// instruction counts.
func WriteSymbols(w io.Writer, syms []objdump.Symbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tBYTES\tINSTRUCTIONS\tCALLS")
	for _, s := range syms {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n",
			s.Name, humanize.Comma(int64(s.Bytes)), s.Instructions, len(s.CallTargets))
	}
	totalBytes, totalInstructions := objdump.Totals(syms)
	fmt.Fprintf(tw, "%s\t%s\t%d\t\n", colorBold("TOTAL"), humanize.Comma(int64(totalBytes)), totalInstructions)
	tw.Flush()
}
