// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package once

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Cell is a value that is set at most once.
//
// The zero value is an empty cell ready for use. A cell is safe for
// concurrent use by multiple goroutines and never allocates after
// construction.
//
// Publication uses the claim protocol: a writer CASes the state word from
// empty to busy, writes the value, and releases the state word to ready.
// Readers take a single acquire load on the fast path; observing ready
// guarantees they observe the fully constructed value.
//
// Memory: the state word and value share the struct so that the published
// fast path touches a single cache line for small T.
type Cell[T any] struct {
	state atomix.Uint64
	value T
}

// NewCell creates an empty cell. Equivalent to new(Cell[T]); provided for
// symmetry with the other constructors.
func NewCell[T any]() *Cell[T] {
	return &Cell[T]{}
}

// Get returns the published value (non-blocking).
// Returns (zero-value, ErrWouldBlock) while no value is published.
func (c *Cell[T]) Get() (T, error) {
	if c.state.LoadAcquire() != stateReady {
		var zero T
		return zero, ErrWouldBlock
	}
	return c.value, nil
}

// MustGet returns the published value and panics if the cell is empty.
// Useful when initialization order guarantees the value is present.
func (c *Cell[T]) MustGet() T {
	if c.state.LoadAcquire() != stateReady {
		panic("once: cell is empty")
	}
	return c.value
}

// Ready reports whether a value has been published.
// A single acquire load; suitable for hot paths.
func (c *Cell[T]) Ready() bool {
	return c.state.LoadAcquire() == stateReady
}

// Set publishes a value (non-blocking at steady state).
// Returns ErrAlreadySet if a value was already published. If an initializer
// holds the claim, Set waits for the outcome: publication fails with
// ErrAlreadySet, a released claim (failed init) lets this Set win.
func (c *Cell[T]) Set(elem *T) error {
	sw := spin.Wait{}
	for {
		if c.state.CompareAndSwapAcqRel(stateEmpty, stateBusy) {
			c.value = *elem
			c.state.StoreRelease(stateReady)
			return nil
		}
		if c.state.LoadAcquire() == stateReady {
			return ErrAlreadySet
		}
		// Claim in flight; wait for it to publish or release.
		sw.Once()
	}
}

// GetOrInit returns the published value, running init to produce it if the
// cell is empty. Exactly one caller runs init per claim; concurrent callers
// spin until the claim publishes or releases.
//
// If init returns an error the claim is released, the error is returned to
// the caller that ran init, and the cell remains empty: a later (or
// concurrently spinning) caller may claim it again. If init panics the
// claim is released and the panic propagates.
func (c *Cell[T]) GetOrInit(init func() (T, error)) (T, error) {
	if c.state.LoadAcquire() == stateReady {
		return c.value, nil
	}
	return c.getOrInitSlow(init)
}

// getOrInitSlow is kept out of line so the fast path above stays within
// the inlining budget.
func (c *Cell[T]) getOrInitSlow(init func() (T, error)) (T, error) {
	sw := spin.Wait{}
	for {
		if c.state.CompareAndSwapAcqRel(stateEmpty, stateBusy) {
			return c.initOnce(init)
		}
		if c.state.LoadAcquire() == stateReady {
			return c.value, nil
		}
		sw.Once()
	}
}

// initOnce runs init while holding the claim. On success the value is
// published; on error or panic the claim is released so the cell can be
// claimed again.
func (c *Cell[T]) initOnce(init func() (T, error)) (T, error) {
	published := false
	defer func() {
		if !published {
			c.state.StoreRelease(stateEmpty)
		}
	}()

	v, err := init()
	if err != nil {
		var zero T
		return zero, err
	}

	c.value = v
	c.state.StoreRelease(stateReady)
	published = true
	return v, nil
}
