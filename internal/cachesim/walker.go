// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cachesim

import "math/rand/v2"

// Walkers drive the hierarchy with synthetic, fully deterministic access
// patterns. They model the shapes the lab cares about: a hot loop that
// fits (or stops fitting) the instruction cache, a call into a distant
// callee, strided and dependent data walks.

// CodeWalk fetches straight-line code: instrs instructions of instrLen
// bytes starting at base, each executed once.
func CodeWalk(h *Hierarchy, base uint64, instrs, instrLen int) {
	addr := base
	for range instrs {
		h.InstrFetch(addr, uint64(instrLen))
		addr += uint64(instrLen)
	}
}

// HotLoop fetches a loop body of bodyBytes at base, iterations times.
// Bodies beyond the I1 capacity stop hitting and expose the cliff.
func HotLoop(h *Hierarchy, base uint64, bodyBytes, instrLen, iterations int) {
	instrs := bodyBytes / instrLen
	if instrs < 1 {
		instrs = 1
	}
	for range iterations {
		CodeWalk(h, base, instrs, instrLen)
	}
}

// CallLoop fetches a loop whose body calls a callee at a distant address,
// modeling the outlined version of a function: caller body, then callee
// body, per iteration. With inlining the same work is a single HotLoop of
// the combined size; comparing the two shows what the call costs in I1
// terms.
func CallLoop(h *Hierarchy, callerBase, calleeBase uint64, callerBytes, calleeBytes, instrLen, iterations int) {
	callerInstrs := callerBytes / instrLen
	if callerInstrs < 1 {
		callerInstrs = 1
	}
	calleeInstrs := calleeBytes / instrLen
	if calleeInstrs < 1 {
		calleeInstrs = 1
	}
	for range iterations {
		CodeWalk(h, callerBase, callerInstrs, instrLen)
		CodeWalk(h, calleeBase, calleeInstrs, instrLen)
	}
}

// StridedWalk reads accesses locations of size bytes, stride bytes apart.
// Strides at or above the line size stop amortizing line fills.
func StridedWalk(h *Hierarchy, base uint64, accesses, stride, size int) {
	addr := base
	for range accesses {
		h.DataRead(addr, uint64(size))
		addr += uint64(stride)
	}
}

// SequentialWrite writes accesses locations of size bytes back to back,
// exercising the write-allocate path.
func SequentialWrite(h *Hierarchy, base uint64, accesses, size int) {
	addr := base
	for range accesses {
		h.DataWrite(addr, uint64(size))
		addr += uint64(size)
	}
}

// PointerChase performs hops dependent reads through a seeded permutation
// of lines cache lines, the access pattern that defeats every prefetcher.
// The same seed always produces the same chase.
func PointerChase(h *Hierarchy, base uint64, lines, hops int, seed uint64) {
	if lines < 2 {
		return
	}
	lineSize := uint64(h.cfg.D1.LineSize)

	perm := make([]int, lines)
	for i := range perm {
		perm[i] = i
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(lines, func(i, j int) {
		perm[i], perm[j] = perm[j], perm[i]
	})

	pos := 0
	for range hops {
		h.DataRead(base+uint64(perm[pos])*lineSize, 8)
		pos = perm[pos]
	}
}
