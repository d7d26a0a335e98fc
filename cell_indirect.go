// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package once

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// CellIndirect is a set-once cell for integer values below 1<<63, packed
// together with its set mark into a single machine word.
//
// The zero value is an empty cell ready for use. Compared to Cell[uint64]
// the indirect representation halves the footprint and makes every
// operation a single atomic instruction, at the price of racy
// initialization: when several goroutines initialize concurrently, each
// may run its initializer, and the first CAS wins. Use Cell when the
// initializer must run at most once.
//
// The high bit of the word marks the SET state, so an empty cell and a
// published zero value stay distinguishable.
type CellIndirect struct {
	word atomix.Uint64
}

// NewCellIndirect creates an empty cell. Equivalent to new(CellIndirect).
func NewCellIndirect() *CellIndirect {
	return &CellIndirect{}
}

// Get returns the published value (non-blocking).
// Returns (0, ErrWouldBlock) while no value is published.
func (c *CellIndirect) Get() (uint64, error) {
	w := c.word.LoadAcquire()
	if w&setFlag == 0 {
		return 0, ErrWouldBlock
	}
	return w &^ setFlag, nil
}

// Ready reports whether a value has been published.
func (c *CellIndirect) Ready() bool {
	return c.word.LoadAcquire()&setFlag != 0
}

// Set publishes a value (non-blocking).
// Returns ErrRange if elem occupies the mark bit, ErrAlreadySet if a value
// was already published.
func (c *CellIndirect) Set(elem uint64) error {
	if elem&setFlag != 0 {
		return ErrRange
	}
	if c.word.CompareAndSwapAcqRel(0, setFlag|elem) {
		return nil
	}
	return ErrAlreadySet
}

// GetOrInit returns the published value, running init to produce it if the
// cell is empty. Initialization is racy: concurrent callers may each run
// init, and the first publication wins; losers discard their value and
// return the winner's. All callers observe the same value.
//
// If init returns an error or an out-of-range value, that caller reports
// the error and the cell remains empty unless another caller published.
func (c *CellIndirect) GetOrInit(init func() (uint64, error)) (uint64, error) {
	w := c.word.LoadAcquire()
	if w&setFlag != 0 {
		return w &^ setFlag, nil
	}

	v, err := init()
	if err != nil {
		return 0, err
	}
	if v&setFlag != 0 {
		return 0, ErrRange
	}
	if c.word.CompareAndSwapAcqRel(0, setFlag|v) {
		return v, nil
	}
	w = c.word.LoadAcquire()
	return w &^ setFlag, nil
}

// Wait spins until a value is published, then returns it.
// Intended for consumers that know a producer is about to publish.
func (c *CellIndirect) Wait() uint64 {
	sw := spin.Wait{}
	for {
		w := c.word.LoadAcquire()
		if w&setFlag != 0 {
			return w &^ setFlag
		}
		sw.Once()
	}
}
