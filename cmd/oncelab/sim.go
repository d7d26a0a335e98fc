// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"code.hybscloud.com/once/internal/cachesim"
	"code.hybscloud.com/once/internal/report"
)

var (
	simDetect      bool
	simPattern     string
	simSites       int
	simCallerBytes int
	simCalleeBytes int
	simSpan        int
	simStride      int
	simIters       int
	simI1          string
	simD1          string
	simLL          string
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Replay synthetic access patterns through a cache model",
	Long: `Replays deterministic instruction and data streams through a
cachegrind-style cache model.

The default pattern, call, compares two layouts of the same program: the
fast path inlined into every call site versus all sites sharing a single
outlined copy. The difference is the instruction cache bill of inlining
once the combined footprint outgrows the first level. The stride, chase
and write patterns drive the data side instead.`,
	RunE: runSim,
}

func init() {
	rootCmd.AddCommand(simCmd)
	simCmd.Flags().BoolVar(&simDetect, "detect", false, "use the host cache geometry instead of the default model")
	simCmd.Flags().StringVar(&simPattern, "pattern", "call", "access pattern: call, stride, chase or write")
	simCmd.Flags().IntVar(&simSites, "sites", 64, "distinct call sites touching the fast path (call)")
	simCmd.Flags().IntVar(&simCallerBytes, "caller-bytes", 512, "machine code bytes per call site (call)")
	simCmd.Flags().IntVar(&simCalleeBytes, "callee-bytes", 256, "machine code bytes of the shared fast path (call)")
	simCmd.Flags().IntVar(&simSpan, "span", 1<<20, "data region size in bytes (stride, chase, write)")
	simCmd.Flags().IntVar(&simStride, "stride", 64, "bytes between accesses (stride)")
	simCmd.Flags().IntVar(&simIters, "iterations", 100, "passes over the pattern")
	simCmd.Flags().StringVar(&simI1, "i1", "", "override I1 geometry as size,assoc,line")
	simCmd.Flags().StringVar(&simD1, "d1", "", "override D1 geometry as size,assoc,line")
	simCmd.Flags().StringVar(&simLL, "ll", "", "override LL geometry as size,assoc,line")
}

const simInstrLen = 4

func runSim(cmd *cobra.Command, args []string) error {
	if simIters < 1 {
		return fmt.Errorf("iterations must be positive")
	}

	cfg := cachesim.Default()
	if simDetect {
		cfg = cachesim.Detect()
	}
	if err := overrideGeometry(&cfg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "I1 %s   D1 %s   LL %s   (%s)\n", cfg.I1, cfg.D1, cfg.LL, cfg.Source)

	switch simPattern {
	case "call":
		return simCall(out, cfg)
	case "stride":
		return simStrided(out, cfg)
	case "chase":
		return simChase(out, cfg)
	case "write":
		return simWrite(out, cfg)
	default:
		return fmt.Errorf("unknown pattern %q: want call, stride, chase or write", simPattern)
	}
}

// overrideGeometry applies the cachegrind-style size,assoc,line flags on
// top of whichever base geometry was chosen.
func overrideGeometry(cfg *cachesim.Config) error {
	overrides := []struct {
		spec string
		geom *cachesim.Geometry
	}{
		{simI1, &cfg.I1},
		{simD1, &cfg.D1},
		{simLL, &cfg.LL},
	}
	overridden := false
	for _, o := range overrides {
		if o.spec == "" {
			continue
		}
		g, err := parseGeometry(o.spec)
		if err != nil {
			return err
		}
		*o.geom = g
		overridden = true
	}
	if overridden {
		cfg.Source += ", overridden"
	}
	return nil
}

func parseGeometry(spec string) (cachesim.Geometry, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 3 {
		return cachesim.Geometry{}, fmt.Errorf("geometry %q: want size,assoc,line", spec)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return cachesim.Geometry{}, fmt.Errorf("geometry %q: %w", spec, err)
		}
		nums[i] = n
	}
	g := cachesim.Geometry{Size: nums[0], Assoc: nums[1], LineSize: nums[2]}
	if err := g.Validate(); err != nil {
		return cachesim.Geometry{}, fmt.Errorf("geometry %q: %w", spec, err)
	}
	return g, nil
}

func simCall(out io.Writer, cfg cachesim.Config) error {
	if simSites < 1 || simCallerBytes < simInstrLen || simCalleeBytes < simInstrLen {
		return fmt.Errorf("sites, caller-bytes and callee-bytes must be positive")
	}

	fmt.Fprintf(out, "%d call sites, %dB caller + %dB fast path, %d passes\n\n",
		simSites, simCallerBytes, simCalleeBytes, simIters)

	inlined, err := simulateCalls(cfg, true)
	if err != nil {
		return err
	}
	outlined, err := simulateCalls(cfg, false)
	if err != nil {
		return err
	}

	inFootprint := uint64(simSites * (simCallerBytes + simCalleeBytes))
	outFootprint := uint64(simSites*simCallerBytes + simCalleeBytes)
	report.WriteCacheStats(out, fmt.Sprintf("inlined, %s of code", humanize.IBytes(inFootprint)), inlined)
	fmt.Fprintln(out)
	report.WriteCacheStats(out, fmt.Sprintf("outlined, %s of code", humanize.IBytes(outFootprint)), outlined)

	fmt.Fprintln(out)
	calls := int64(simSites) * int64(simIters)
	switch {
	case inlined.I1mr > outlined.I1mr:
		fmt.Fprintf(out, "inlining costs %s extra I1 misses over %s calls\n",
			humanize.Comma(int64(inlined.I1mr-outlined.I1mr)), humanize.Comma(calls))
	case inlined.I1mr < outlined.I1mr:
		fmt.Fprintf(out, "inlining saves %s I1 misses over %s calls\n",
			humanize.Comma(int64(outlined.I1mr-inlined.I1mr)), humanize.Comma(calls))
	default:
		fmt.Fprintln(out, "both layouts miss I1 equally; the footprint fits either way")
	}
	return nil
}

// simulateCalls replays the call sites. Inlined duplicates the fast path
// into every site; outlined keeps one shared copy away from the callers.
func simulateCalls(cfg cachesim.Config, inlined bool) (cachesim.Stats, error) {
	h, err := cachesim.New(cfg)
	if err != nil {
		return cachesim.Stats{}, err
	}

	bodyBytes := simCallerBytes
	if inlined {
		bodyBytes += simCalleeBytes
	}
	line := uint64(cfg.I1.LineSize)
	spacing := (uint64(bodyBytes) + line - 1) / line * line

	calleeBase := uint64(1) << 30
	for range simIters {
		for site := range simSites {
			siteBase := uint64(site) * spacing
			if inlined {
				cachesim.HotLoop(h, siteBase, bodyBytes, simInstrLen, 1)
			} else {
				cachesim.CallLoop(h, siteBase, calleeBase, simCallerBytes, simCalleeBytes, simInstrLen, 1)
			}
		}
	}
	return h.Stats(), nil
}

func simStrided(out io.Writer, cfg cachesim.Config) error {
	if simStride < 1 || simSpan < simStride {
		return fmt.Errorf("span must cover at least one stride")
	}
	h, err := cachesim.New(cfg)
	if err != nil {
		return err
	}

	accesses := simSpan / simStride
	fmt.Fprintf(out, "%s span, %dB stride, %d passes\n\n", humanize.IBytes(uint64(simSpan)), simStride, simIters)
	for range simIters {
		cachesim.StridedWalk(h, 0, accesses, simStride, 8)
	}
	report.WriteCacheStats(out, fmt.Sprintf("strided reads over %s", humanize.IBytes(uint64(simSpan))), h.Stats())
	return nil
}

func simChase(out io.Writer, cfg cachesim.Config) error {
	lines := simSpan / cfg.D1.LineSize
	if lines < 2 {
		return fmt.Errorf("span must cover at least two %dB lines", cfg.D1.LineSize)
	}
	h, err := cachesim.New(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s span, %d lines, %d passes\n\n", humanize.IBytes(uint64(simSpan)), lines, simIters)
	cachesim.PointerChase(h, 0, lines, lines*simIters, 1)
	report.WriteCacheStats(out, fmt.Sprintf("pointer chase over %s", humanize.IBytes(uint64(simSpan))), h.Stats())
	return nil
}

func simWrite(out io.Writer, cfg cachesim.Config) error {
	const wordBytes = 8
	if simSpan < wordBytes {
		return fmt.Errorf("span must cover at least one %dB word", wordBytes)
	}
	h, err := cachesim.New(cfg)
	if err != nil {
		return err
	}

	accesses := simSpan / wordBytes
	fmt.Fprintf(out, "%s span, %dB words, %d passes\n\n", humanize.IBytes(uint64(simSpan)), wordBytes, simIters)
	for range simIters {
		cachesim.SequentialWrite(h, 0, accesses, wordBytes)
	}
	report.WriteCacheStats(out, fmt.Sprintf("sequential writes over %s", humanize.IBytes(uint64(simSpan))), h.Stats())
	return nil
}
