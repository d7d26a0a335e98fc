// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package benchlab

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/cpuid/v2"

	"code.hybscloud.com/once/internal/log"
	"code.hybscloud.com/once/internal/perfcount"
)

// Options configures Execute.
type Options struct {
	// Events to attribute per benchmark. Nil selects the default set when
	// counters are available; an explicit empty slice disables the
	// counter pass.
	Events []perfcount.Event
	// Commit to stamp on the run, usually from DetectCommit.
	Commit string
	// BenchTime is how long each benchmark runs, like go test -benchtime.
	// Zero keeps the testing package default.
	BenchTime time.Duration
}

// Execute runs every descriptor and assembles a Run stamped with the
// environment. On context cancellation it returns the results collected
// so far together with the context error.
func Execute(ctx context.Context, descs []Descriptor, opts Options) (Run, error) {
	logger := log.WithComponent("benchlab")

	if opts.BenchTime > 0 {
		if err := setBenchTime(opts.BenchTime); err != nil {
			return Run{}, err
		}
	}
	events := opts.Events
	if events == nil && perfcount.Supported() {
		events = perfcount.DefaultEvents()
	}

	run := newRun(opts.Commit)
	run.Results = make([]Result, 0, len(descs))
	for _, d := range descs {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		name := d.name()
		if d.Bench == nil {
			return run, fmt.Errorf("benchlab: descriptor %q has no benchmark function", name)
		}

		logger.Info().Str("bench", name).Msg("running")
		res := timingPass(name, d)
		if len(events) > 0 && perfcount.Supported() && !d.Parallel {
			res.Counters = counterPass(events, d)
		}
		run.Results = append(run.Results, res)

		logger.Info().
			Str("bench", name).
			Float64("ns_op", res.NsPerOp).
			Int64("allocs_op", res.AllocsPerOp).
			Int("n", res.N).
			Msg("done")
	}
	return run, nil
}

func newRun(commit string) Run {
	host, _ := os.Hostname()
	return Run{
		ID:        uuid.NewString(),
		Date:      time.Now().UTC(),
		Commit:    commit,
		GoVersion: runtime.Version(),
		GOOS:      runtime.GOOS,
		GOARCH:    runtime.GOARCH,
		CPU:       cpuid.CPU.BrandName,
		Host:      host,
	}
}

// setBenchTime routes the duration to the testing package, which only
// takes it through its flag. Init is idempotent, so repeated Execute
// calls just overwrite the value.
func setBenchTime(d time.Duration) error {
	testing.Init()
	return flag.Set("test.benchtime", d.String())
}

func timingPass(name string, d Descriptor) Result {
	r := testing.Benchmark(d.Bench)
	return Result{
		Name:        name,
		N:           r.N,
		NsPerOp:     float64(r.T.Nanoseconds()) / float64(r.N),
		AllocsPerOp: r.AllocsPerOp(),
		BytesPerOp:  r.AllocedBytesPerOp(),
	}
}

// counterPass reruns the benchmark inside a perf event group. The testing
// package calls the body several times while calibrating b.N; each call
// overwrites the sample, so the surviving counts and iteration count both
// belong to the final, longest round.
func counterPass(events []perfcount.Event, d Descriptor) []Counter {
	var (
		sample  perfcount.Sample
		lastN   int
		lastErr error
	)
	testing.Benchmark(func(b *testing.B) {
		s, err := perfcount.Measure(events, func() { d.Bench(b) })
		if err != nil {
			lastErr = err
			return
		}
		sample = s
		lastN = b.N
	})
	if lastErr != nil || lastN == 0 {
		logger := log.WithComponent("benchlab")
		logger.Warn().
			Err(lastErr).
			Str("bench", d.name()).
			Msg("counter pass failed")
		return nil
	}

	counters := make([]Counter, 0, len(sample.Counts))
	for _, c := range sample.Counts {
		counters = append(counters, Counter{
			Event:  c.Event,
			PerOp:  float64(c.Value) / float64(lastN),
			Total:  c.Value,
			Scaled: c.Scaled,
		})
	}
	return counters
}

// DetectCommit returns the short hash of the checked-out commit, empty
// when the working directory is not a git checkout.
func DetectCommit(ctx context.Context) string {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--short", "HEAD")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return ""
	}
	return strings.TrimSpace(out.String())
}
