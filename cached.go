// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package once

import (
	"sync"
	"sync/atomic"
	"time"
)

// Cached is a value recomputed at most once per interval.
//
// It extends the set-once cells with expiry: readers inside the interval
// take a single atomic pointer load, and the first reader past the expiry
// runs the update while concurrent readers keep serving the previous
// snapshot. A Cached must be created with NewCached.
//
// When an update fails after a value has been published, readers receive
// the last good value together with the update error, so callers choose
// between serving stale and failing.
type Cached[T any] struct {
	ttl    time.Duration
	update func() (T, error)

	snap       atomic.Pointer[cachedSnap[T]]
	refreshing sync.Mutex
}

type cachedSnap[T any] struct {
	v    T
	err  error
	atMs int64
}

// NewCached creates a cache that refreshes via update at most once per
// ttl. Panics if update is nil or ttl is not positive.
func NewCached[T any](ttl time.Duration, update func() (T, error)) *Cached[T] {
	if update == nil {
		panic("once: nil update function")
	}
	if ttl <= 0 {
		panic("once: non-positive ttl")
	}
	return &Cached[T]{ttl: ttl, update: update}
}

// Get returns the cached value, refreshing it when the interval has
// elapsed. Only one goroutine refreshes at a time; the value and error of
// the freshest completed update are returned.
func (c *Cached[T]) Get() (T, error) {
	if s := c.snap.Load(); s != nil && !c.expired(s) {
		return s.v, s.err
	}
	return c.refresh()
}

func (c *Cached[T]) refresh() (T, error) {
	c.refreshing.Lock()
	defer c.refreshing.Unlock()

	// Another goroutine may have refreshed while this one waited.
	if s := c.snap.Load(); s != nil && !c.expired(s) {
		return s.v, s.err
	}

	v, err := c.update()
	next := &cachedSnap[T]{v: v, err: err, atMs: time.Now().UnixMilli()}
	if err != nil {
		if prev := c.snap.Load(); prev != nil && prev.err == nil {
			// Keep serving the last good value alongside the new error.
			next.v = prev.v
		}
	}
	c.snap.Store(next)
	return next.v, next.err
}

// Invalidate drops the snapshot so the next Get runs the update.
func (c *Cached[T]) Invalidate() {
	c.snap.Store(nil)
}

func (c *Cached[T]) expired(s *cachedSnap[T]) bool {
	return time.Now().UnixMilli()-s.atMs >= c.ttl.Milliseconds()
}
