// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package once

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Flag runs a function at most once, like sync.Once with a non-blocking
// fast path and an inspectable state.
//
// The zero value is ready for use. A Flag must not be copied after first
// use. Unlike sync.Once, waiters spin instead of parking on a mutex, which
// keeps the completion latency flat under contention bursts shorter than a
// scheduling quantum.
type Flag struct {
	state atomix.Uint64
}

// Do calls f if and only if Do or DoErr has not completed before for this
// flag. Concurrent callers spin until the first call returns.
//
// Matching sync.Once, the flag is marked done even if f panics: the panic
// propagates to the caller that ran f and later calls return without
// calling f again.
func (o *Flag) Do(f func()) {
	if o.state.LoadAcquire() == stateReady {
		return
	}
	o.doSlow(f)
}

func (o *Flag) doSlow(f func()) {
	sw := spin.Wait{}
	for {
		if o.state.CompareAndSwapAcqRel(stateEmpty, stateBusy) {
			defer o.state.StoreRelease(stateReady)
			f()
			return
		}
		if o.state.LoadAcquire() == stateReady {
			return
		}
		sw.Once()
	}
}

// DoErr calls f if and only if no call has completed successfully before.
// Unlike Do, a failed or panicking f releases the flag so that a later
// call retries. The error from the executing call is returned to that
// caller; spinning callers whose claim holder failed retry themselves.
func (o *Flag) DoErr(f func() error) error {
	if o.state.LoadAcquire() == stateReady {
		return nil
	}
	return o.doErrSlow(f)
}

func (o *Flag) doErrSlow(f func() error) error {
	sw := spin.Wait{}
	for {
		if o.state.CompareAndSwapAcqRel(stateEmpty, stateBusy) {
			done := false
			defer func() {
				if !done {
					o.state.StoreRelease(stateEmpty)
				}
			}()
			if err := f(); err != nil {
				return err
			}
			o.state.StoreRelease(stateReady)
			done = true
			return nil
		}
		if o.state.LoadAcquire() == stateReady {
			return nil
		}
		sw.Once()
	}
}

// Done reports whether a call has completed.
func (o *Flag) Done() bool {
	return o.state.LoadAcquire() == stateReady
}
