// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package benchlab runs benchmarks programmatically and attaches hardware
// counters to them.
//
// The testing package answers "how long"; the lab also wants "how many
// instructions, how many cache misses, per operation" and a durable record
// of both over time. A Descriptor names a benchmark function, Execute runs
// it twice: a clean timing pass, then a pass inside a perf event group
// whose counts are divided by the final iteration count. Store persists
// the runs as one JSON file each so later runs can be compared and
// charted.
package benchlab

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	"code.hybscloud.com/once/internal/perfcount"
)

// Descriptor names one benchmark the lab can run.
type Descriptor struct {
	// Name identifies the benchmark in reports. Empty means the name is
	// derived from the function symbol, so top-level benchmark functions
	// need no explicit name and closures do.
	Name string
	// Bench is the benchmark body, a regular testing benchmark function.
	Bench func(b *testing.B)
	// Parallel marks bodies driven by b.RunParallel. Their work spreads
	// across threads the counter group does not follow, so the counter
	// pass is skipped for them.
	Parallel bool
}

func (d Descriptor) name() string {
	if d.Name != "" {
		return d.Name
	}
	return callerName(d.Bench)
}

// callerName resolves the symbol name of a benchmark function, trimmed to
// its last path element.
func callerName(f func(b *testing.B)) string {
	fullName := runtime.FuncForPC(reflect.ValueOf(f).Pointer()).Name()
	idx := strings.LastIndexByte(fullName, '.')
	if idx > 0 && idx+1 < len(fullName) {
		return fullName[idx+1:]
	}
	return fullName
}

// Counter is one hardware event attributed to a benchmark.
type Counter struct {
	Event perfcount.Event `json:"event"`
	// PerOp is the count divided by the iterations of the measured pass.
	PerOp float64 `json:"per_op"`
	// Total is the raw count over the whole measured pass.
	Total uint64 `json:"total"`
	// Scaled marks counts extrapolated from partial scheduling time.
	Scaled bool `json:"scaled,omitempty"`
}

// Result is one benchmark's outcome.
type Result struct {
	Name        string  `json:"name"`
	N           int     `json:"iterations"`
	NsPerOp     float64 `json:"ns_per_op"`
	AllocsPerOp int64   `json:"allocs_per_op"`
	BytesPerOp  int64   `json:"bytes_per_op"`
	// Counters holds the per-op hardware events of the counter pass,
	// empty when counters were unavailable or skipped.
	Counters []Counter `json:"counters,omitempty"`
}

// Counter returns the named counter.
func (r Result) Counter(ev perfcount.Event) (Counter, bool) {
	for _, c := range r.Counters {
		if c.Event == ev {
			return c, true
		}
	}
	return Counter{}, false
}

// IPC returns instructions per cycle, 0 when either counter is missing.
func (r Result) IPC() float64 {
	ins, okI := r.Counter(perfcount.Instructions)
	cyc, okC := r.Counter(perfcount.Cycles)
	if !okI || !okC || cyc.Total == 0 {
		return 0
	}
	return float64(ins.Total) / float64(cyc.Total)
}

// Run is one execution of a benchmark set with its environment.
type Run struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Commit    string    `json:"commit,omitempty"`
	GoVersion string    `json:"go_version"`
	GOOS      string    `json:"goos"`
	GOARCH    string    `json:"goarch"`
	CPU       string    `json:"cpu,omitempty"`
	Host      string    `json:"host,omitempty"`
	Results   []Result  `json:"results"`
}

// Result returns the named result.
func (r Run) Result(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

// Label identifies the run in reports and file names: the commit when
// known, otherwise the short run ID.
func (r Run) Label() string {
	if r.Commit != "" {
		return r.Commit
	}
	if len(r.ID) >= 8 {
		return r.ID[:8]
	}
	return r.ID
}

func (r Run) String() string {
	return fmt.Sprintf("%s %s (%d results)", r.Date.Format(time.DateOnly), r.Label(), len(r.Results))
}
