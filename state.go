// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package once

// Cell and Flag state words. Transitions are monotonic except for the
// busy→empty release on failed or panicking initialization:
//
//	empty ──CAS──▶ busy ──StoreRelease──▶ ready
//	  ▲              │
//	  └──────────────┘ (init returned an error or panicked)
//
// The ready store is the release edge paired with the acquire load on the
// fast path: a reader that observes stateReady observes every write the
// initializer made before publication.
const (
	stateEmpty uint64 = iota // no value, claim available
	stateBusy                // an initializer or setter holds the claim
	stateReady               // value published
)

// setFlag marks a CellIndirect word as set. The remaining 63 bits store
// the value, so the zero word is an empty cell.
const setFlag uint64 = 1 << 63
