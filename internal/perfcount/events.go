// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package perfcount samples hardware performance counters around Go code.
//
// On Linux it opens perf event groups (the perf_event_open syscall used by
// perf stat) so that instructions, cycles, cache and branch events are
// counted for exactly the measured region, with multiplex scaling applied
// when the PMU runs out of counters. Other platforms report
// ErrNotSupported.
package perfcount

import (
	"errors"
	"fmt"
)

// Event names a hardware counter. The names follow perf-stat conventions
// so samples read naturally next to perf output.
type Event string

const (
	// Core events, available on effectively every PMU.
	Cycles       Event = "cycles"
	Instructions Event = "instructions"

	// Last-level cache as perf defines it for the generic events.
	CacheReferences Event = "cache-references"
	CacheMisses     Event = "cache-misses"

	// Branch unit.
	Branches     Event = "branches"
	BranchMisses Event = "branch-misses"

	// First-level cache detail.
	L1DLoads      Event = "L1-dcache-loads"
	L1DLoadMisses Event = "L1-dcache-load-misses"
	L1DStores     Event = "L1-dcache-stores"
	L1ILoadMisses Event = "L1-icache-load-misses"

	// Last-level cache detail.
	LLCLoads      Event = "LLC-loads"
	LLCLoadMisses Event = "LLC-load-misses"

	// TLB detail.
	DTLBLoadMisses Event = "dTLB-load-misses"
	ITLBLoadMisses Event = "iTLB-load-misses"

	// Software events, counted by the kernel rather than the PMU.
	TaskClock       Event = "task-clock"
	PageFaults      Event = "page-faults"
	ContextSwitches Event = "context-switches"
)

// ErrNotSupported reports that hardware counters are unavailable: non-Linux
// platform, missing PMU, or insufficient permissions.
var ErrNotSupported = errors.New("perfcount: hardware counters not supported")

// ErrUnknownEvent reports an event name with no counter mapping.
var ErrUnknownEvent = errors.New("perfcount: unknown event")

// DefaultEvents is the general-purpose group: pipeline and last-level
// cache pressure in six counters, small enough to schedule without
// multiplexing on common PMUs.
func DefaultEvents() []Event {
	return []Event{
		Instructions, Cycles,
		CacheReferences, CacheMisses,
		Branches, BranchMisses,
	}
}

// StatEvents is the classic perf stat column set. Software events always
// schedule, so only the hardware members compete for PMU slots.
func StatEvents() []Event {
	return []Event{
		TaskClock, ContextSwitches, PageFaults,
		Cycles, Instructions,
		Branches, BranchMisses,
	}
}

// ICacheEvents focuses on the instruction side: front-end misses that
// dominate when code size outgrows the first-level instruction cache.
func ICacheEvents() []Event {
	return []Event{
		Instructions, Cycles,
		L1ILoadMisses, ITLBLoadMisses,
	}
}

// DCacheEvents focuses on the data side of the first-level cache.
func DCacheEvents() []Event {
	return []Event{
		Instructions, Cycles,
		L1DLoads, L1DLoadMisses,
	}
}

// ParseEvents converts comma-separated perf-style names to events,
// rejecting unknown names.
func ParseEvents(names []string) ([]Event, error) {
	events := make([]Event, 0, len(names))
	for _, name := range names {
		ev := Event(name)
		if !known(ev) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, name)
		}
		events = append(events, ev)
	}
	return events, nil
}

func known(ev Event) bool {
	switch ev {
	case Cycles, Instructions,
		CacheReferences, CacheMisses,
		Branches, BranchMisses,
		L1DLoads, L1DLoadMisses, L1DStores, L1ILoadMisses,
		LLCLoads, LLCLoadMisses,
		DTLBLoadMisses, ITLBLoadMisses,
		TaskClock, PageFaults, ContextSwitches:
		return true
	}
	return false
}
