// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cachesim

// Stats carries the cachegrind counter set: instruction fetches and data
// reads/writes with their first-level and last-level misses.
type Stats struct {
	Ir   uint64 // instruction fetches
	I1mr uint64 // I1 read misses
	ILmr uint64 // LL misses from instruction fetches

	Dr   uint64 // data reads
	D1mr uint64 // D1 read misses
	DLmr uint64 // LL misses from data reads

	Dw   uint64 // data writes
	D1mw uint64 // D1 write misses
	DLmw uint64 // LL misses from data writes
}

// DataAccesses returns Dr+Dw.
func (s Stats) DataAccesses() uint64 {
	return s.Dr + s.Dw
}

// LLRefs returns the accesses that reached the last level.
func (s Stats) LLRefs() uint64 {
	return s.I1mr + s.D1mr + s.D1mw
}

// LLMisses returns the accesses the last level could not serve.
func (s Stats) LLMisses() uint64 {
	return s.ILmr + s.DLmr + s.DLmw
}

// I1MissRate returns I1 misses per instruction fetch.
func (s Stats) I1MissRate() float64 {
	return rate(s.I1mr, s.Ir)
}

// D1MissRate returns D1 misses per data access.
func (s Stats) D1MissRate() float64 {
	return rate(s.D1mr+s.D1mw, s.Dr+s.Dw)
}

// LLMissRate returns LL misses per LL reference.
func (s Stats) LLMissRate() float64 {
	return rate(s.LLMisses(), s.LLRefs())
}

// Add returns s with o's counts added, for aggregating phases.
func (s Stats) Add(o Stats) Stats {
	s.Ir += o.Ir
	s.I1mr += o.I1mr
	s.ILmr += o.ILmr
	s.Dr += o.Dr
	s.D1mr += o.D1mr
	s.DLmr += o.DLmr
	s.Dw += o.Dw
	s.D1mw += o.D1mw
	s.DLmw += o.DLmw
	return s
}

// Delta returns s minus an earlier snapshot, for isolating one phase.
func (s Stats) Delta(earlier Stats) Stats {
	s.Ir -= earlier.Ir
	s.I1mr -= earlier.I1mr
	s.ILmr -= earlier.ILmr
	s.Dr -= earlier.Dr
	s.D1mr -= earlier.D1mr
	s.DLmr -= earlier.DLmr
	s.Dw -= earlier.Dw
	s.D1mw -= earlier.D1mw
	s.DLmw -= earlier.DLmw
	return s
}

func rate(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}
