// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cachesim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tiny returns a hand-checkable geometry: direct-mapped 4-set first
// levels over a tiny 2-way last level.
func tiny() Config {
	return Config{
		I1:     Geometry{Size: 256, LineSize: 64, Assoc: 1},
		D1:     Geometry{Size: 256, LineSize: 64, Assoc: 1},
		LL:     Geometry{Size: 1024, LineSize: 64, Assoc: 2},
		Source: "test",
	}
}

func TestGeometry(t *testing.T) {
	g := Geometry{Size: 32 * 1024, LineSize: 64, Assoc: 8}
	require.NoError(t, g.Validate())
	assert.Equal(t, 64, g.Sets())
	assert.Contains(t, g.String(), "KiB")

	assert.Error(t, Geometry{Size: 0, LineSize: 64, Assoc: 8}.Validate())
	assert.Error(t, Geometry{Size: 48 * 1024, LineSize: 64, Assoc: 8}.Validate())
	assert.Error(t, Geometry{Size: 128, LineSize: 64, Assoc: 4}.Validate())
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 32*1024, cfg.I1.Size)
	assert.Equal(t, 8*1024*1024, cfg.LL.Size)
}

func TestDetectValidates(t *testing.T) {
	// Whatever the host looks like, detection must produce a geometry the
	// simulator can index.
	cfg := Detect()
	require.NoError(t, cfg.Validate())
	assert.NotEmpty(t, cfg.Source)
}

func TestColdMissThenHit(t *testing.T) {
	h, err := New(tiny())
	require.NoError(t, err)

	h.DataRead(0, 8)
	h.DataRead(0, 8)

	s := h.Stats()
	assert.Equal(t, uint64(2), s.Dr)
	assert.Equal(t, uint64(1), s.D1mr)
	assert.Equal(t, uint64(1), s.DLmr)
}

func TestLineGranularity(t *testing.T) {
	h, err := New(tiny())
	require.NoError(t, err)

	// Same 64B line: one miss
	h.DataRead(0, 8)
	h.DataRead(56, 8)
	assert.Equal(t, uint64(1), h.Stats().D1mr)

	// Next line: another miss
	h.DataRead(64, 8)
	assert.Equal(t, uint64(2), h.Stats().D1mr)
}

func TestStraddlingAccess(t *testing.T) {
	h, err := New(tiny())
	require.NoError(t, err)

	// 8 bytes at offset 60 span lines 0 and 1: one access, one miss,
	// both lines installed.
	h.DataRead(60, 8)
	s := h.Stats()
	assert.Equal(t, uint64(1), s.Dr)
	assert.Equal(t, uint64(1), s.D1mr)

	h.DataRead(0, 8)
	h.DataRead(64, 8)
	assert.Equal(t, uint64(1), h.Stats().D1mr, "both straddled lines must be resident")
}

func TestDirectMappedConflict(t *testing.T) {
	h, err := New(tiny())
	require.NoError(t, err)

	// 4 sets, direct-mapped: lines 0 and 4 share set 0.
	h.DataRead(0, 8)     // line 0: miss
	h.DataRead(4*64, 8)  // line 4: miss, evicts line 0
	h.DataRead(0, 8)     // line 0: conflict miss

	assert.Equal(t, uint64(3), h.Stats().D1mr)
}

func TestLRUOrder(t *testing.T) {
	cfg := tiny()
	cfg.D1 = Geometry{Size: 256, LineSize: 64, Assoc: 2} // 2 sets, 2-way
	h, err := New(cfg)
	require.NoError(t, err)

	// Lines 0, 2, 4 all map to set 0 (even lines).
	h.DataRead(0, 8)     // miss: {0}
	h.DataRead(2*64, 8)  // miss: {2,0}
	h.DataRead(0, 8)     // hit:  {0,2}
	h.DataRead(4*64, 8)  // miss: evicts LRU line 2 -> {4,0}
	h.DataRead(0, 8)     // hit
	h.DataRead(2*64, 8)  // miss

	s := h.Stats()
	assert.Equal(t, uint64(6), s.Dr)
	assert.Equal(t, uint64(4), s.D1mr)
}

func TestWriteAllocate(t *testing.T) {
	h, err := New(tiny())
	require.NoError(t, err)

	h.DataWrite(0, 8)
	s := h.Stats()
	assert.Equal(t, uint64(1), s.Dw)
	assert.Equal(t, uint64(1), s.D1mw)

	// The written line is resident for the following read.
	h.DataRead(0, 8)
	assert.Equal(t, uint64(0), h.Stats().D1mr)
}

func TestInstrFetchCascade(t *testing.T) {
	h, err := New(tiny())
	require.NoError(t, err)

	h.InstrFetch(0, 4)
	h.InstrFetch(0, 4)

	s := h.Stats()
	assert.Equal(t, uint64(2), s.Ir)
	assert.Equal(t, uint64(1), s.I1mr)
	assert.Equal(t, uint64(1), s.ILmr)
	assert.Equal(t, uint64(1), s.LLRefs())
	assert.Equal(t, uint64(1), s.LLMisses())
}

func TestHotLoopFitsI1(t *testing.T) {
	h, err := New(Default())
	require.NoError(t, err)

	// 1KiB body: 16 lines, well inside 32KiB. Only the first pass misses.
	HotLoop(h, 0, 1024, 4, 100)

	s := h.Stats()
	assert.Equal(t, uint64(100*1024/4), s.Ir)
	assert.Equal(t, uint64(16), s.I1mr)
	assert.Equal(t, uint64(16), s.ILmr)
}

func TestHotLoopThrashesI1(t *testing.T) {
	h, err := New(Default())
	require.NoError(t, err)

	// 64KiB body: 1024 lines cycling through 64 sets of 8 ways. Sixteen
	// lines rotate per set, so LRU evicts every line before its reuse and
	// every fetch of a new line misses, every iteration.
	HotLoop(h, 0, 64*1024, 4, 5)

	s := h.Stats()
	assert.Equal(t, uint64(5*1024), s.I1mr)
	// The body fits LL: only the first pass misses there.
	assert.Equal(t, uint64(1024), s.ILmr)
}

func TestCallLoopConflict(t *testing.T) {
	h, err := New(tiny())
	require.NoError(t, err)

	// Direct-mapped I1 with 4 sets: a 64B caller at line 0 and a 64B
	// callee at line 4 collide in set 0, so both miss every iteration.
	CallLoop(h, 0, 4*64, 64, 64, 4, 10)

	s := h.Stats()
	assert.Equal(t, uint64(10*2*16), s.Ir)
	assert.Equal(t, uint64(2*10), s.I1mr)

	// The inlined equivalent of the same 128 bytes is conflict-free:
	// lines 0 and 1 sit in different sets.
	h.Reset()
	HotLoop(h, 0, 128, 4, 10)
	assert.Equal(t, uint64(2), h.Stats().I1mr)
}

func TestStridedWalk(t *testing.T) {
	h, err := New(Default())
	require.NoError(t, err)

	// Line-sized stride: every access opens a new line.
	StridedWalk(h, 0, 100, 64, 8)
	assert.Equal(t, uint64(100), h.Stats().D1mr)

	// 8B stride: 8 accesses share each 64B line.
	h.Reset()
	StridedWalk(h, 0, 800, 8, 8)
	assert.Equal(t, uint64(100), h.Stats().D1mr)
}

func TestPointerChaseDeterministic(t *testing.T) {
	run := func(seed uint64) Stats {
		h, err := New(Default())
		require.NoError(t, err)
		PointerChase(h, 0, 4096, 10000, seed)
		return h.Stats()
	}

	a := run(42)
	b := run(42)
	assert.Equal(t, a, b, "same seed must reproduce identical counts")
	assert.Equal(t, uint64(10000), a.Dr)
}

func TestStatsArithmetic(t *testing.T) {
	a := Stats{Ir: 10, I1mr: 2, Dr: 5, D1mr: 1, Dw: 3, D1mw: 1}
	b := Stats{Ir: 5, I1mr: 1, Dr: 2, Dw: 1}

	sum := a.Add(b)
	assert.Equal(t, uint64(15), sum.Ir)
	assert.Equal(t, uint64(3), sum.I1mr)

	delta := sum.Delta(a)
	assert.Equal(t, b, delta)

	assert.InDelta(t, 0.2, a.I1MissRate(), 1e-9)
	assert.InDelta(t, 0.25, a.D1MissRate(), 1e-9)
	assert.Zero(t, Stats{}.I1MissRate())
}

func TestReset(t *testing.T) {
	h, err := New(tiny())
	require.NoError(t, err)

	h.DataRead(0, 8)
	h.InstrFetch(0, 4)
	h.Reset()

	assert.Equal(t, Stats{}, h.Stats())

	// Contents are gone too: the next read is a cold miss again.
	h.DataRead(0, 8)
	assert.Equal(t, uint64(1), h.Stats().D1mr)
}
