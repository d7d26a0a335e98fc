// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package once provides set-once cells and call-once flags built on
// explicit memory ordering, together with a measurement lab for studying
// their cost at the hardware level.
//
// The primitives replace the double-checked-locking pattern: publication
// is a release store of a state word, observation is a single acquire
// load, and the slow path claims the cell with a compare-and-swap instead
// of a mutex. At steady state every read is one atomic load plus a
// predictable branch.
//
// # Primitives
//
// Six primitives cover the common shapes of one-time initialization:
//
//   - Cell[T]: a set-once value of any type. A state word guards a plain
//     value field; exactly one initializer runs per claim.
//   - CellIndirect: a set-once integer below 1<<63 packed with its set
//     mark into one word. Initialization is racy; first CAS wins.
//   - CellPtr: a set-once raw pointer with the Cell claim protocol.
//   - Flag: run a function at most once, like sync.Once with a spinning
//     slow path and an inspectable Done state.
//   - Lazy[T]: a Cell bound to its initializer at construction.
//   - Cached[T]: a value recomputed at most once per interval, readers
//     inside the interval pay one atomic pointer load.
//
// # Publication protocol
//
// Cell, CellPtr and Flag share a three-state protocol:
//
//	empty --CAS--> busy --release store--> ready
//	              busy --release store--> empty   (failed initializer)
//
// A writer that wins the CAS owns the cell: it writes the value through a
// plain store, then publishes with a release store of the ready state.
// Readers poll the state word with an acquire load; once they observe
// ready, the value write is guaranteed visible. A failed or panicking
// initializer releases the claim back to empty so the cell can be claimed
// again; Flag.Do is the exception and matches sync.Once by marking the
// flag done even on panic.
//
// Contending claimers and readers that choose to wait spin with
// exponential backoff rather than parking on a mutex. This keeps the
// published fast path free of scheduler interaction and bounds the
// completion latency of short initializers.
//
// # Usage
//
// Typical lazy initialization of shared state:
//
//	var cell once.Cell[*Config]
//
//	func config() (*Config, error) {
//		return cell.GetOrInit(loadConfig)
//	}
//
// Non-blocking observation follows the iox convention: an empty cell
// returns ErrWouldBlock, a control flow signal rather than a failure, so
// probing an unset cell is not an error condition:
//
//	v, err := cell.Get()
//	if once.IsWouldBlock(err) {
//		// not initialized yet
//	}
//
// # Measurement lab
//
// The internal packages and the oncelab command measure what the
// primitives cost on real hardware: benchmark harness, perf-event counter
// groups (instructions, cycles, cache and branch misses), a
// cachegrind-style cache simulator for reproducible miss counts, and
// machine-code size reports that expose the inlining behavior of the fast
// paths. See cmd/oncelab.
package once
