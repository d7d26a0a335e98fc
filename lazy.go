// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package once

// Lazy is a value computed on first access.
//
// It binds a Cell to its initializer at construction, so call sites read
// the value without carrying the initializer around. Exactly one caller
// runs the initializer; concurrent first readers spin until publication.
//
// If the initializer panics, the panic propagates to the caller that ran
// it, the cell is released, and a later access runs the initializer again.
type Lazy[T any] struct {
	cell Cell[T]
	fn   func() T
}

// NewLazy creates a Lazy bound to fn. Panics if fn is nil.
func NewLazy[T any](fn func() T) *Lazy[T] {
	if fn == nil {
		panic("once: nil initializer")
	}
	return &Lazy[T]{fn: fn}
}

// Value returns the computed value, computing it on first access.
func (l *Lazy[T]) Value() T {
	if l.cell.state.LoadAcquire() == stateReady {
		return l.cell.value
	}
	v, _ := l.cell.getOrInitSlow(func() (T, error) {
		return l.fn(), nil
	})
	return v
}

// Ready reports whether the value has been computed.
func (l *Lazy[T]) Ready() bool {
	return l.cell.Ready()
}
