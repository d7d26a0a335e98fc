// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package once

import (
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// CellPtr is a set-once cell for raw pointers.
//
// The zero value is an empty cell ready for use. It follows the same claim
// protocol as Cell, keeping the pointer in a plain field so the garbage
// collector continues to see the referent. Because the set mark lives in a
// separate state word, publishing a nil pointer is allowed and remains
// distinguishable from an empty cell.
type CellPtr struct {
	state atomix.Uint64
	p     unsafe.Pointer
}

// NewCellPtr creates an empty cell. Equivalent to new(CellPtr).
func NewCellPtr() *CellPtr {
	return &CellPtr{}
}

// Get returns the published pointer (non-blocking).
// Returns (nil, ErrWouldBlock) while no pointer is published.
func (c *CellPtr) Get() (unsafe.Pointer, error) {
	if c.state.LoadAcquire() != stateReady {
		return nil, ErrWouldBlock
	}
	return c.p, nil
}

// Ready reports whether a pointer has been published.
func (c *CellPtr) Ready() bool {
	return c.state.LoadAcquire() == stateReady
}

// Set publishes a pointer.
// Returns ErrAlreadySet if a pointer was already published.
func (c *CellPtr) Set(p unsafe.Pointer) error {
	sw := spin.Wait{}
	for {
		if c.state.CompareAndSwapAcqRel(stateEmpty, stateBusy) {
			c.p = p
			c.state.StoreRelease(stateReady)
			return nil
		}
		if c.state.LoadAcquire() == stateReady {
			return ErrAlreadySet
		}
		sw.Once()
	}
}

// GetOrInit returns the published pointer, running init to produce it if
// the cell is empty. Exactly one caller runs init per claim; a failed or
// panicking init releases the claim and leaves the cell empty.
func (c *CellPtr) GetOrInit(init func() (unsafe.Pointer, error)) (unsafe.Pointer, error) {
	if c.state.LoadAcquire() == stateReady {
		return c.p, nil
	}
	return c.getOrInitSlow(init)
}

func (c *CellPtr) getOrInitSlow(init func() (unsafe.Pointer, error)) (unsafe.Pointer, error) {
	sw := spin.Wait{}
	for {
		if c.state.CompareAndSwapAcqRel(stateEmpty, stateBusy) {
			published := false
			defer func() {
				if !published {
					c.state.StoreRelease(stateEmpty)
				}
			}()
			p, err := init()
			if err != nil {
				return nil, err
			}
			c.p = p
			c.state.StoreRelease(stateReady)
			published = true
			return p, nil
		}
		if c.state.LoadAcquire() == stateReady {
			return c.p, nil
		}
		sw.Once()
	}
}
