// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cachesim simulates a two-level cache hierarchy the way
// cachegrind does: a first-level instruction cache and data cache backed
// by a shared last-level cache, each set-associative with true LRU
// replacement.
//
// Hardware counters answer "how many misses"; the simulator answers "why"
// with exact, reproducible counts that are independent of frequency
// scaling, interrupts and speculative execution. The two views complement
// each other the same way perf stat and cachegrind do.
package cachesim

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/cpuid/v2"
)

// Geometry describes one cache level.
type Geometry struct {
	Size     int // total bytes
	LineSize int // bytes per line
	Assoc    int // ways per set
}

// Sets returns the number of sets.
func (g Geometry) Sets() int {
	return g.Size / (g.LineSize * g.Assoc)
}

// Validate checks that the geometry describes an indexable cache: positive
// power-of-two size and line size, associativity dividing the line count.
func (g Geometry) Validate() error {
	if g.Size <= 0 || g.LineSize <= 0 || g.Assoc <= 0 {
		return fmt.Errorf("cachesim: non-positive geometry %v", g)
	}
	if !isPow2(g.Size) || !isPow2(g.LineSize) {
		return fmt.Errorf("cachesim: size and line size must be powers of two: %v", g)
	}
	if g.LineSize*g.Assoc > g.Size {
		return fmt.Errorf("cachesim: %d ways of %dB lines exceed %dB", g.Assoc, g.LineSize, g.Size)
	}
	if sets := g.Sets(); !isPow2(sets) {
		return fmt.Errorf("cachesim: set count %d is not a power of two: %v", sets, g)
	}
	return nil
}

func (g Geometry) String() string {
	return fmt.Sprintf("%s, %dB lines, %d-way", humanize.IBytes(uint64(g.Size)), g.LineSize, g.Assoc)
}

func isPow2(v int) bool {
	return v > 0 && v&(v-1) == 0
}

// Config describes the simulated hierarchy.
type Config struct {
	I1, D1, LL Geometry
	Source     string // where the geometry came from, for report headers
}

// Default returns the geometry cachegrind assumes when autodetection is
// unavailable: split 32KiB/64B/8-way first level, unified 8MiB/64B/16-way
// last level.
func Default() Config {
	return Config{
		I1:     Geometry{Size: 32 * 1024, LineSize: 64, Assoc: 8},
		D1:     Geometry{Size: 32 * 1024, LineSize: 64, Assoc: 8},
		LL:     Geometry{Size: 8 * 1024 * 1024, LineSize: 64, Assoc: 16},
		Source: "cachegrind defaults",
	}
}

// Detect builds a config from the host CPU where cpuid exposes the sizes,
// falling back per level to the defaults. Associativity is not exposed by
// cpuid, so the default way counts are kept.
func Detect() Config {
	cfg := Default()
	detected := false

	line := cpuid.CPU.CacheLine
	if isPow2(line) && line >= 16 {
		cfg.I1.LineSize = line
		cfg.D1.LineSize = line
		cfg.LL.LineSize = line
		detected = true
	}
	if size := cpuid.CPU.Cache.L1I; size > 0 && isPow2(size) {
		cfg.I1.Size = size
		detected = true
	}
	if size := cpuid.CPU.Cache.L1D; size > 0 && isPow2(size) {
		cfg.D1.Size = size
		detected = true
	}
	// Prefer L3 as the last level; some parts expose only L2.
	if size := cpuid.CPU.Cache.L3; size > 0 && isPow2(size) {
		cfg.LL.Size = size
		detected = true
	} else if size := cpuid.CPU.Cache.L2; size > 0 && isPow2(size) {
		cfg.LL.Size = size
		detected = true
	}

	if detected {
		cfg.Source = "detected: " + cpuid.CPU.BrandName
	}

	// Detection can report shapes the simulator cannot index; keep the
	// defaults for any level that does not validate.
	def := Default()
	if cfg.I1.Validate() != nil {
		cfg.I1 = def.I1
	}
	if cfg.D1.Validate() != nil {
		cfg.D1 = def.D1
	}
	if cfg.LL.Validate() != nil {
		cfg.LL = def.LL
	}
	return cfg
}

// Validate checks every level.
func (c Config) Validate() error {
	if err := c.I1.Validate(); err != nil {
		return fmt.Errorf("I1: %w", err)
	}
	if err := c.D1.Validate(); err != nil {
		return fmt.Errorf("D1: %w", err)
	}
	if err := c.LL.Validate(); err != nil {
		return fmt.Errorf("LL: %w", err)
	}
	return nil
}
