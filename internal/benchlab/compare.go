// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package benchlab

import (
	"fmt"

	"code.hybscloud.com/once/internal/perfcount"
)

// DefaultThreshold is the percentage change below which a comparison is
// treated as noise. Sub-nanosecond fast paths jitter a few percent run to
// run even on a quiet machine.
const DefaultThreshold = 3.0

// Verdict classifies one metric's change.
type Verdict string

const (
	VerdictSame   Verdict = "same"
	VerdictBetter Verdict = "better"
	VerdictWorse  Verdict = "worse"
)

// CounterDiff is the percentage change of one hardware event, per op.
type CounterDiff struct {
	Event perfcount.Event
	Prev  float64
	Curr  float64
	Diff  float64 // percentage change
}

// Comparison pairs one benchmark's results from two runs.
type Comparison struct {
	Name            string
	NsPerOpDiff     float64 // percentage change
	BytesPerOpDiff  float64 // percentage change
	AllocsPerOpDiff float64 // percentage change
	CounterDiffs    []CounterDiff
	Prev            Result
	Curr            Result
}

// Verdict classifies the time change of the comparison against the given
// threshold in percent. Lower is better for every metric the lab tracks.
func (c Comparison) Verdict(threshold float64) Verdict {
	switch {
	case c.NsPerOpDiff > threshold:
		return VerdictWorse
	case c.NsPerOpDiff < -threshold:
		return VerdictBetter
	default:
		return VerdictSame
	}
}

func (c Comparison) String() string {
	return fmt.Sprintf("%s: %+.2f%% ns/op", c.Name, c.NsPerOpDiff)
}

// Compare pairs the benchmarks present in both runs, in the current run's
// order. Benchmarks that appear in only one run are left out; a rename is
// a new benchmark, not a regression.
func Compare(prev, curr Run) []Comparison {
	prevByName := make(map[string]Result, len(prev.Results))
	for _, r := range prev.Results {
		prevByName[r.Name] = r
	}

	var comparisons []Comparison
	for _, c := range curr.Results {
		p, ok := prevByName[c.Name]
		if !ok {
			continue
		}
		comp := Comparison{
			Name: c.Name,
			Prev: p,
			Curr: c,
		}
		if p.NsPerOp > 0 {
			comp.NsPerOpDiff = (c.NsPerOp - p.NsPerOp) / p.NsPerOp * 100
		}
		if p.BytesPerOp > 0 {
			comp.BytesPerOpDiff = float64(c.BytesPerOp-p.BytesPerOp) / float64(p.BytesPerOp) * 100
		}
		if p.AllocsPerOp > 0 {
			comp.AllocsPerOpDiff = float64(c.AllocsPerOp-p.AllocsPerOp) / float64(p.AllocsPerOp) * 100
		}
		comp.CounterDiffs = compareCounters(p, c)
		comparisons = append(comparisons, comp)
	}
	return comparisons
}

func compareCounters(prev, curr Result) []CounterDiff {
	var diffs []CounterDiff
	for _, cc := range curr.Counters {
		pc, ok := prev.Counter(cc.Event)
		if !ok || pc.PerOp <= 0 {
			continue
		}
		diffs = append(diffs, CounterDiff{
			Event: cc.Event,
			Prev:  pc.PerOp,
			Curr:  cc.PerOp,
			Diff:  (cc.PerOp - pc.PerOp) / pc.PerOp * 100,
		})
	}
	return diffs
}

// Regressions filters comparisons whose time verdict is worse than the
// threshold.
func Regressions(comparisons []Comparison, threshold float64) []Comparison {
	var out []Comparison
	for _, c := range comparisons {
		if c.Verdict(threshold) == VerdictWorse {
			out = append(out, c)
		}
	}
	return out
}
