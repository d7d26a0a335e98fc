// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cachesim

import "math/bits"

// cache is one set-associative level with true LRU replacement.
//
// Each set keeps its resident line tags in MRU-first order, so a hit is a
// scan plus a rotate and an eviction is dropping the tail. With the way
// counts real caches use (4..16) the linear scan beats any fancier
// structure.
type cache struct {
	geom      Geometry
	sets      [][]uint64
	lineShift uint
	setMask   uint64
}

func newCache(geom Geometry) *cache {
	numSets := geom.Sets()
	sets := make([][]uint64, numSets)
	backing := make([]uint64, 0, numSets*geom.Assoc)
	for i := range sets {
		sets[i] = backing[i*geom.Assoc : i*geom.Assoc : (i+1)*geom.Assoc]
	}
	return &cache{
		geom:      geom,
		sets:      sets,
		lineShift: uint(bits.TrailingZeros(uint(geom.LineSize))),
		setMask:   uint64(numSets - 1),
	}
}

// lineOf maps a byte address to its line address.
func (c *cache) lineOf(addr uint64) uint64 {
	return addr >> c.lineShift
}

// access touches one line, reporting whether it hit. On a miss the line is
// installed, evicting the LRU way of its set when full.
func (c *cache) access(line uint64) bool {
	set := c.sets[line&c.setMask]

	for i := range set {
		if set[i] == line {
			// Rotate to MRU position.
			copy(set[1:i+1], set[:i])
			set[0] = line
			return true
		}
	}

	if len(set) < c.geom.Assoc {
		set = append(set, 0)
	}
	copy(set[1:], set)
	set[0] = line
	c.sets[line&c.setMask] = set
	return false
}

func (c *cache) reset() {
	for i := range c.sets {
		c.sets[i] = c.sets[i][:0]
	}
}
