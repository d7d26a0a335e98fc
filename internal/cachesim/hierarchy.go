// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cachesim

// Hierarchy is the simulated machine: split first-level caches over a
// unified last level. Misses in I1 or D1 cascade into LL; the levels keep
// independent contents and there is no back-invalidation, matching the
// cachegrind model.
//
// A Hierarchy is not safe for concurrent use; drive it from one goroutine.
type Hierarchy struct {
	cfg   Config
	i1    *cache
	d1    *cache
	ll    *cache
	stats Stats
}

// New builds a hierarchy for the given geometry.
func New(cfg Config) (*Hierarchy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Hierarchy{
		cfg: cfg,
		i1:  newCache(cfg.I1),
		d1:  newCache(cfg.D1),
		ll:  newCache(cfg.LL),
	}, nil
}

// Config returns the simulated geometry.
func (h *Hierarchy) Config() Config {
	return h.cfg
}

// Stats returns the counts so far.
func (h *Hierarchy) Stats() Stats {
	return h.stats
}

// Reset clears contents and counts.
func (h *Hierarchy) Reset() {
	h.i1.reset()
	h.d1.reset()
	h.ll.reset()
	h.stats = Stats{}
}

// InstrFetch counts one instruction fetch of size bytes at addr.
func (h *Hierarchy) InstrFetch(addr, size uint64) {
	h.stats.Ir++
	if miss := h.touch(h.i1, addr, size); miss {
		h.stats.I1mr++
		if h.touchLL(addr, size) {
			h.stats.ILmr++
		}
	}
}

// DataRead counts one data read of size bytes at addr.
func (h *Hierarchy) DataRead(addr, size uint64) {
	h.stats.Dr++
	if miss := h.touch(h.d1, addr, size); miss {
		h.stats.D1mr++
		if h.touchLL(addr, size) {
			h.stats.DLmr++
		}
	}
}

// DataWrite counts one data write of size bytes at addr. The caches are
// write-allocate: a write miss installs the line like a read miss.
func (h *Hierarchy) DataWrite(addr, size uint64) {
	h.stats.Dw++
	if miss := h.touch(h.d1, addr, size); miss {
		h.stats.D1mw++
		if h.touchLL(addr, size) {
			h.stats.DLmw++
		}
	}
}

// touch accesses every line the range [addr, addr+size) spans, reporting
// whether any of them missed. An access straddling a line boundary counts
// as one event but touches both lines, so at most one miss is recorded per
// event even when both lines miss.
func (h *Hierarchy) touch(c *cache, addr, size uint64) bool {
	if size == 0 {
		size = 1
	}
	first := c.lineOf(addr)
	last := c.lineOf(addr + size - 1)
	miss := false
	for line := first; line <= last; line++ {
		if !c.access(line) {
			miss = true
		}
	}
	return miss
}

func (h *Hierarchy) touchLL(addr, size uint64) bool {
	return h.touch(h.ll, addr, size)
}
