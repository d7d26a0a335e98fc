// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package suite is the lab's standard benchmark set: the set-once
// primitives' published fast paths, their first-access cost, and the
// standard library constructs they replace. Names are stable so charts
// and stored runs stay comparable across versions.
package suite

import (
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unsafe"

	"code.hybscloud.com/once"
	"code.hybscloud.com/once/internal/benchlab"
)

// Sinks keep the measured loads observable so the compiler cannot
// eliminate the benchmark bodies.
var (
	sinkInt  int
	sinkU64  uint64
	sinkBool bool
	sinkPtr  unsafe.Pointer
)

// Default returns the full benchmark set in report order: fast paths,
// baselines, first-access sweeps, contended reads.
func Default() []benchlab.Descriptor {
	return []benchlab.Descriptor{
		{Name: "CellGet", Bench: benchCellGet},
		{Name: "CellGetOrInit", Bench: benchCellGetOrInit},
		{Name: "CellIndirectGet", Bench: benchCellIndirectGet},
		{Name: "CellPtrGet", Bench: benchCellPtrGet},
		{Name: "FlagDo", Bench: benchFlagDo},
		{Name: "FlagDone", Bench: benchFlagDone},
		{Name: "LazyValue", Bench: benchLazyValue},
		{Name: "CachedGet", Bench: benchCachedGet},
		{Name: "CellGetSpread", Bench: benchCellGetSpread},

		{Name: "BaselineSyncOnce", Bench: benchSyncOnce},
		{Name: "BaselineSyncOnceValue", Bench: benchSyncOnceValue},
		{Name: "BaselineMutexDCL", Bench: benchMutexDCL},
		{Name: "BaselineRWMutexRead", Bench: benchRWMutexRead},
		{Name: "BaselineAtomicAdd", Bench: benchAtomicAdd},
		{Name: "BaselineSyncOnceSpread", Bench: benchSyncOnceSpread},

		{Name: "CellInit", Bench: benchCellInit},
		{Name: "FlagFirstDo", Bench: benchFlagFirstDo},
		{Name: "BaselineSyncOnceFirstDo", Bench: benchSyncOnceFirstDo},

		{Name: "CellGetParallel", Bench: benchCellGetParallel, Parallel: true},
		{Name: "FlagDoParallel", Bench: benchFlagDoParallel, Parallel: true},
		{Name: "BaselineSyncOnceParallel", Bench: benchSyncOnceParallel, Parallel: true},
		{Name: "BaselineMutexDCLParallel", Bench: benchMutexDCLParallel, Parallel: true},
	}
}

// Filter keeps descriptors whose names match the regular expression,
// following go test -bench semantics. An empty pattern keeps everything.
func Filter(descs []benchlab.Descriptor, pattern string) ([]benchlab.Descriptor, error) {
	if pattern == "" {
		return descs, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	var out []benchlab.Descriptor
	for _, d := range descs {
		if re.MatchString(d.Name) {
			out = append(out, d)
		}
	}
	return out, nil
}

// ============================================================
//  Published Fast Path
// ============================================================

func benchCellGet(b *testing.B) {
	var c once.Cell[int]
	v := 42
	c.Set(&v)

	b.ResetTimer()
	for range b.N {
		v, _ := c.Get()
		sinkInt = v
	}
}

func benchCellGetOrInit(b *testing.B) {
	var c once.Cell[int]
	init := func() (int, error) { return 42, nil }
	c.GetOrInit(init)

	b.ResetTimer()
	for range b.N {
		v, _ := c.GetOrInit(init)
		sinkInt = v
	}
}

func benchCellIndirectGet(b *testing.B) {
	var c once.CellIndirect
	c.Set(42)

	b.ResetTimer()
	for range b.N {
		v, _ := c.Get()
		sinkU64 = v
	}
}

func benchCellPtrGet(b *testing.B) {
	var c once.CellPtr
	val := 42
	c.Set(unsafe.Pointer(&val))

	b.ResetTimer()
	for range b.N {
		p, _ := c.Get()
		sinkPtr = p
	}
}

func benchFlagDo(b *testing.B) {
	var f once.Flag
	f.Do(func() {})
	noop := func() {}

	b.ResetTimer()
	for range b.N {
		f.Do(noop)
	}
}

func benchFlagDone(b *testing.B) {
	var f once.Flag
	f.Do(func() {})

	b.ResetTimer()
	for range b.N {
		sinkBool = f.Done()
	}
}

func benchLazyValue(b *testing.B) {
	l := once.NewLazy(func() int { return 42 })
	l.Value()

	b.ResetTimer()
	for range b.N {
		sinkInt = l.Value()
	}
}

func benchCachedGet(b *testing.B) {
	c := once.NewCached(time.Hour, func() (int, error) { return 42, nil })
	c.Get()

	b.ResetTimer()
	for range b.N {
		v, _ := c.Get()
		sinkInt = v
	}
}

// spreadSites is the number of distinct instances the spread variants
// cycle through, so the fast path runs as it would in a program with
// many independent once sites instead of one hot site.
const spreadSites = 1024

func benchCellGetSpread(b *testing.B) {
	cells := make([]once.Cell[int], spreadSites)
	for i := range cells {
		v := i
		cells[i].Set(&v)
	}

	b.ResetTimer()
	for i := range b.N {
		v, _ := cells[i&(spreadSites-1)].Get()
		sinkInt = v
	}
}

// ============================================================
//  Baselines
// ============================================================

func benchSyncOnce(b *testing.B) {
	var o sync.Once
	o.Do(func() {})
	noop := func() {}

	b.ResetTimer()
	for range b.N {
		o.Do(noop)
	}
}

func benchSyncOnceValue(b *testing.B) {
	f := sync.OnceValue(func() int { return 42 })
	f()

	b.ResetTimer()
	for range b.N {
		sinkInt = f()
	}
}

func benchMutexDCL(b *testing.B) {
	var mu sync.Mutex
	var p *int

	get := func() int {
		mu.Lock()
		if p == nil {
			v := 42
			p = &v
		}
		r := *p
		mu.Unlock()
		return r
	}
	get()

	b.ResetTimer()
	for range b.N {
		sinkInt = get()
	}
}

func benchRWMutexRead(b *testing.B) {
	var mu sync.RWMutex
	v := 42

	b.ResetTimer()
	for range b.N {
		mu.RLock()
		sinkInt = v
		mu.RUnlock()
	}
}

// benchAtomicAdd brackets the cost scale: the published fast paths are
// an atomic load, one step below this.
func benchAtomicAdd(b *testing.B) {
	var n atomic.Int64

	b.ResetTimer()
	for range b.N {
		sinkInt = int(n.Add(1))
	}
}

func benchSyncOnceSpread(b *testing.B) {
	onces := make([]sync.Once, spreadSites)
	noop := func() {}
	for i := range onces {
		onces[i].Do(noop)
	}

	b.ResetTimer()
	for i := range b.N {
		onces[i&(spreadSites-1)].Do(noop)
	}
}

// ============================================================
//  First Access
// ============================================================

func benchCellInit(b *testing.B) {
	cells := make([]once.Cell[int], b.N)
	init := func() (int, error) { return 42, nil }

	b.ResetTimer()
	for i := range b.N {
		v, _ := cells[i].GetOrInit(init)
		sinkInt = v
	}
}

func benchFlagFirstDo(b *testing.B) {
	flags := make([]once.Flag, b.N)
	f := func() {}

	b.ResetTimer()
	for i := range b.N {
		flags[i].Do(f)
	}
}

func benchSyncOnceFirstDo(b *testing.B) {
	onces := make([]sync.Once, b.N)
	f := func() {}

	b.ResetTimer()
	for i := range b.N {
		onces[i].Do(f)
	}
}

// ============================================================
//  Parallel Reads
// ============================================================

func benchCellGetParallel(b *testing.B) {
	var c once.Cell[int]
	v := 42
	c.Set(&v)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			v, _ := c.Get()
			sinkInt = v
		}
	})
}

func benchFlagDoParallel(b *testing.B) {
	var f once.Flag
	f.Do(func() {})
	noop := func() {}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			f.Do(noop)
		}
	})
}

func benchSyncOnceParallel(b *testing.B) {
	var o sync.Once
	o.Do(func() {})
	noop := func() {}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			o.Do(noop)
		}
	})
}

func benchMutexDCLParallel(b *testing.B) {
	var mu sync.Mutex
	var p *int
	func() {
		mu.Lock()
		defer mu.Unlock()
		v := 42
		p = &v
	}()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			mu.Lock()
			sinkInt = *p
			mu.Unlock()
		}
	})
}
