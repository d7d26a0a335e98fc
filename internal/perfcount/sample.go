// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package perfcount

import "time"

// Count is one counter's result for a measured region.
//
// When the kernel multiplexes counter groups, Value is the raw count
// scaled by enabled/running time and Scaled is set; Raw keeps the
// unscaled reading.
type Count struct {
	Event   Event
	Value   uint64
	Raw     uint64
	Enabled time.Duration
	Running time.Duration
	Scaled  bool
}

// Sample holds the counters for one measured region.
type Sample struct {
	Wall   time.Duration
	Counts []Count

	// KernelExcluded is set when permissions forced user-space-only
	// counting; kernel-side work (page faults, syscalls) is then invisible.
	KernelExcluded bool
}

// Lookup returns the count for ev.
func (s Sample) Lookup(ev Event) (Count, bool) {
	for i := range s.Counts {
		if s.Counts[i].Event == ev {
			return s.Counts[i], true
		}
	}
	return Count{}, false
}

// Value returns the scaled value for ev, or 0 when absent.
func (s Sample) Value(ev Event) uint64 {
	c, ok := s.Lookup(ev)
	if !ok {
		return 0
	}
	return c.Value
}

// IPC returns instructions per cycle, when both events are present and
// cycles is non-zero.
func (s Sample) IPC() (float64, bool) {
	ins, okI := s.Lookup(Instructions)
	cyc, okC := s.Lookup(Cycles)
	if !okI || !okC || cyc.Value == 0 {
		return 0, false
	}
	return float64(ins.Value) / float64(cyc.Value), true
}

// MissRatio returns miss/ref for an event pair such as
// (CacheMisses, CacheReferences), when both are present and ref is
// non-zero.
func (s Sample) MissRatio(miss, ref Event) (float64, bool) {
	m, okM := s.Lookup(miss)
	r, okR := s.Lookup(ref)
	if !okM || !okR || r.Value == 0 {
		return 0, false
	}
	return float64(m.Value) / float64(r.Value), true
}

// PerOp divides every counter by n, for converting a region total into a
// per-operation figure. n must be positive.
func (s Sample) PerOp(n int) map[Event]float64 {
	perOp := make(map[Event]float64, len(s.Counts))
	for i := range s.Counts {
		perOp[s.Counts[i].Event] = float64(s.Counts[i].Value) / float64(n)
	}
	return perOp
}
