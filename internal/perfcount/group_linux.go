// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package perfcount

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"code.hybscloud.com/once"
)

// Group is a perf event group. The kernel schedules a group onto the PMU
// atomically: either every member counts or none does, which keeps ratios
// between events (misses over references, instructions over cycles)
// meaningful even under multiplexing.
type Group struct {
	events         []Event
	fds            []int // fds[0] is the leader
	kernelExcluded bool
}

// Open creates a disabled counter group for the calling thread. When
// permissions deny kernel-side counting the group is reopened counting
// user space only, reported via Sample.KernelExcluded.
func Open(events ...Event) (*Group, error) {
	g, err := open(events, false)
	if err == nil {
		return g, nil
	}
	if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) {
		if g, retryErr := open(events, true); retryErr == nil {
			g.kernelExcluded = true
			return g, nil
		}
	}
	return nil, permissionHint(err)
}

func open(events []Event, excludeKernel bool) (*Group, error) {
	if len(events) == 0 {
		return nil, errors.New("perfcount: no events")
	}
	g := &Group{events: events, fds: make([]int, 0, len(events))}
	leader := -1
	for i, ev := range events {
		attr, err := attrFor(ev)
		if err != nil {
			g.Close()
			return nil, err
		}
		if i == 0 {
			// The leader starts disabled and carries the group read format;
			// followers are gated by the leader.
			attr.Bits |= unix.PerfBitDisabled
			attr.Read_format |= unix.PERF_FORMAT_GROUP
		}
		if excludeKernel {
			attr.Bits |= unix.PerfBitExcludeKernel | unix.PerfBitExcludeHv
		}
		fd, err := unix.PerfEventOpen(&attr, 0, -1, leader, unix.PERF_FLAG_FD_CLOEXEC)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("perfcount: open %s: %w", ev, err)
		}
		if i == 0 {
			leader = fd
		}
		g.fds = append(g.fds, fd)
	}
	return g, nil
}

// Reset zeroes every counter in the group.
func (g *Group) Reset() error {
	return unix.IoctlSetInt(g.fds[0], unix.PERF_EVENT_IOC_RESET, unix.PERF_IOC_FLAG_GROUP)
}

// Enable starts the group counting.
func (g *Group) Enable() error {
	return unix.IoctlSetInt(g.fds[0], unix.PERF_EVENT_IOC_ENABLE, unix.PERF_IOC_FLAG_GROUP)
}

// Disable stops the group counting.
func (g *Group) Disable() error {
	return unix.IoctlSetInt(g.fds[0], unix.PERF_EVENT_IOC_DISABLE, unix.PERF_IOC_FLAG_GROUP)
}

// Close releases the group's descriptors.
func (g *Group) Close() error {
	var firstErr error
	for _, fd := range g.fds {
		if err := unix.Close(fd); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	g.fds = g.fds[:0]
	return firstErr
}

// ReadCounts reads the whole group through the leader and applies
// multiplex scaling (raw * enabled/running) where the group was not
// scheduled the entire time.
func (g *Group) ReadCounts() ([]Count, error) {
	// Layout with PERF_FORMAT_GROUP|TOTAL_TIME_ENABLED|TOTAL_TIME_RUNNING:
	// nr, time_enabled, time_running, value[nr].
	buf := make([]byte, 8*(3+len(g.fds)))
	n, err := unix.Read(g.fds[0], buf)
	if err != nil {
		return nil, fmt.Errorf("perfcount: read group: %w", err)
	}
	if n < 24 {
		return nil, fmt.Errorf("perfcount: short group read: %d bytes", n)
	}
	nr := binary.NativeEndian.Uint64(buf[0:])
	enabled := binary.NativeEndian.Uint64(buf[8:])
	running := binary.NativeEndian.Uint64(buf[16:])
	if nr != uint64(len(g.fds)) {
		return nil, fmt.Errorf("perfcount: group read returned %d values, want %d", nr, len(g.fds))
	}

	counts := make([]Count, 0, len(g.fds))
	for i := range g.fds {
		raw := binary.NativeEndian.Uint64(buf[24+8*i:])
		c := Count{
			Event:   g.events[i],
			Raw:     raw,
			Value:   raw,
			Enabled: time.Duration(enabled),
			Running: time.Duration(running),
		}
		switch {
		case running == 0:
			// Never scheduled; no estimate is possible.
			c.Value = 0
			c.Scaled = true
		case running < enabled:
			c.Value = uint64(float64(raw) * float64(enabled) / float64(running))
			c.Scaled = true
		}
		counts = append(counts, c)
	}
	return counts, nil
}

// Measure runs f with the given events counting on the calling thread.
// The goroutine is locked to its OS thread for the duration so the
// counters observe exactly the measured code.
func Measure(events []Event, f func()) (Sample, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	g, err := Open(events...)
	if err != nil {
		return Sample{}, err
	}
	defer g.Close()

	if err := g.Reset(); err != nil {
		return Sample{}, fmt.Errorf("perfcount: reset: %w", err)
	}
	if err := g.Enable(); err != nil {
		return Sample{}, fmt.Errorf("perfcount: enable: %w", err)
	}
	start := time.Now()
	f()
	wall := time.Since(start)
	if err := g.Disable(); err != nil {
		return Sample{}, fmt.Errorf("perfcount: disable: %w", err)
	}

	counts, err := g.ReadCounts()
	if err != nil {
		return Sample{}, err
	}
	return Sample{Wall: wall, Counts: counts, KernelExcluded: g.kernelExcluded}, nil
}

var supported = once.NewLazy(func() bool {
	g, err := Open(Instructions)
	if err != nil {
		return false
	}
	g.Close()
	return true
})

// Supported reports whether counters can be opened on this system.
// The probe runs once and is cached.
func Supported() bool {
	return supported.Value()
}

// Command runs a child process under the counters, perf-stat style: the
// counters attach between Start and Wait with the inherit bit, so threads
// and children spawned afterwards are counted. The handful of instructions
// the child executes before attachment is missed.
//
// The kernel rejects PERF_FORMAT_GROUP together with inherit, so Command
// opens one independent counter per event and reads each separately;
// cross-event ratios are then subject to independent multiplexing.
func Command(ctx context.Context, events []Event, name string, args ...string) (Sample, error) {
	if len(events) == 0 {
		return Sample{}, errors.New("perfcount: no events")
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Sample{}, fmt.Errorf("perfcount: start %s: %w", name, err)
	}

	fds, kernelExcluded, err := openInherit(events, cmd.Process.Pid)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return Sample{}, err
	}
	defer closeAll(fds)

	waitErr := cmd.Wait()
	wall := time.Since(start)

	counts := make([]Count, 0, len(fds))
	for i, fd := range fds {
		c, err := readSingle(fd, events[i])
		if err != nil {
			return Sample{}, err
		}
		counts = append(counts, c)
	}
	return Sample{Wall: wall, Counts: counts, KernelExcluded: kernelExcluded}, waitErr
}

func openInherit(events []Event, pid int) (fds []int, kernelExcluded bool, err error) {
	fds, err = openInheritOnce(events, pid, false)
	if err == nil {
		return fds, false, nil
	}
	if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) {
		if fds, retryErr := openInheritOnce(events, pid, true); retryErr == nil {
			return fds, true, nil
		}
	}
	return nil, false, permissionHint(err)
}

func openInheritOnce(events []Event, pid int, excludeKernel bool) ([]int, error) {
	fds := make([]int, 0, len(events))
	for _, ev := range events {
		attr, err := attrFor(ev)
		if err != nil {
			closeAll(fds)
			return nil, err
		}
		attr.Bits |= unix.PerfBitInherit
		if excludeKernel {
			attr.Bits |= unix.PerfBitExcludeKernel | unix.PerfBitExcludeHv
		}
		fd, err := unix.PerfEventOpen(&attr, pid, -1, -1, unix.PERF_FLAG_FD_CLOEXEC)
		if err != nil {
			closeAll(fds)
			return nil, fmt.Errorf("perfcount: open %s for pid %d: %w", ev, pid, err)
		}
		fds = append(fds, fd)
	}
	return fds, nil
}

func readSingle(fd int, ev Event) (Count, error) {
	// Layout with TOTAL_TIME_ENABLED|TOTAL_TIME_RUNNING: value, enabled, running.
	var buf [24]byte
	n, err := unix.Read(fd, buf[:])
	if err != nil {
		return Count{}, fmt.Errorf("perfcount: read %s: %w", ev, err)
	}
	if n < 24 {
		return Count{}, fmt.Errorf("perfcount: short read for %s: %d bytes", ev, n)
	}
	raw := binary.NativeEndian.Uint64(buf[0:])
	enabled := binary.NativeEndian.Uint64(buf[8:])
	running := binary.NativeEndian.Uint64(buf[16:])
	c := Count{
		Event:   ev,
		Raw:     raw,
		Value:   raw,
		Enabled: time.Duration(enabled),
		Running: time.Duration(running),
	}
	switch {
	case running == 0:
		c.Value = 0
		c.Scaled = true
	case running < enabled:
		c.Value = uint64(float64(raw) * float64(enabled) / float64(running))
		c.Scaled = true
	}
	return c, nil
}

func closeAll(fds []int) {
	for _, fd := range fds {
		unix.Close(fd)
	}
}

func attrFor(ev Event) (unix.PerfEventAttr, error) {
	attr := unix.PerfEventAttr{
		Size:        uint32(unsafe.Sizeof(unix.PerfEventAttr{})),
		Read_format: unix.PERF_FORMAT_TOTAL_TIME_ENABLED | unix.PERF_FORMAT_TOTAL_TIME_RUNNING,
	}
	switch ev {
	case Cycles:
		attr.Type = unix.PERF_TYPE_HARDWARE
		attr.Config = unix.PERF_COUNT_HW_CPU_CYCLES
	case Instructions:
		attr.Type = unix.PERF_TYPE_HARDWARE
		attr.Config = unix.PERF_COUNT_HW_INSTRUCTIONS
	case CacheReferences:
		attr.Type = unix.PERF_TYPE_HARDWARE
		attr.Config = unix.PERF_COUNT_HW_CACHE_REFERENCES
	case CacheMisses:
		attr.Type = unix.PERF_TYPE_HARDWARE
		attr.Config = unix.PERF_COUNT_HW_CACHE_MISSES
	case Branches:
		attr.Type = unix.PERF_TYPE_HARDWARE
		attr.Config = unix.PERF_COUNT_HW_BRANCH_INSTRUCTIONS
	case BranchMisses:
		attr.Type = unix.PERF_TYPE_HARDWARE
		attr.Config = unix.PERF_COUNT_HW_BRANCH_MISSES
	case L1DLoads:
		attr.Type = unix.PERF_TYPE_HW_CACHE
		attr.Config = hwCacheConfig(unix.PERF_COUNT_HW_CACHE_L1D, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS)
	case L1DLoadMisses:
		attr.Type = unix.PERF_TYPE_HW_CACHE
		attr.Config = hwCacheConfig(unix.PERF_COUNT_HW_CACHE_L1D, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS)
	case L1DStores:
		attr.Type = unix.PERF_TYPE_HW_CACHE
		attr.Config = hwCacheConfig(unix.PERF_COUNT_HW_CACHE_L1D, unix.PERF_COUNT_HW_CACHE_OP_WRITE, unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS)
	case L1ILoadMisses:
		attr.Type = unix.PERF_TYPE_HW_CACHE
		attr.Config = hwCacheConfig(unix.PERF_COUNT_HW_CACHE_L1I, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS)
	case LLCLoads:
		attr.Type = unix.PERF_TYPE_HW_CACHE
		attr.Config = hwCacheConfig(unix.PERF_COUNT_HW_CACHE_LL, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS)
	case LLCLoadMisses:
		attr.Type = unix.PERF_TYPE_HW_CACHE
		attr.Config = hwCacheConfig(unix.PERF_COUNT_HW_CACHE_LL, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS)
	case DTLBLoadMisses:
		attr.Type = unix.PERF_TYPE_HW_CACHE
		attr.Config = hwCacheConfig(unix.PERF_COUNT_HW_CACHE_DTLB, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS)
	case ITLBLoadMisses:
		attr.Type = unix.PERF_TYPE_HW_CACHE
		attr.Config = hwCacheConfig(unix.PERF_COUNT_HW_CACHE_ITLB, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS)
	case TaskClock:
		attr.Type = unix.PERF_TYPE_SOFTWARE
		attr.Config = unix.PERF_COUNT_SW_TASK_CLOCK
	case PageFaults:
		attr.Type = unix.PERF_TYPE_SOFTWARE
		attr.Config = unix.PERF_COUNT_SW_PAGE_FAULTS
	case ContextSwitches:
		attr.Type = unix.PERF_TYPE_SOFTWARE
		attr.Config = unix.PERF_COUNT_SW_CONTEXT_SWITCHES
	default:
		return attr, fmt.Errorf("%w: %s", ErrUnknownEvent, ev)
	}
	return attr, nil
}

func hwCacheConfig(cache, op, result uint64) uint64 {
	return cache | op<<8 | result<<16
}

func permissionHint(err error) error {
	if !errors.Is(err, unix.EACCES) && !errors.Is(err, unix.EPERM) {
		return err
	}
	level := "unknown"
	if b, readErr := os.ReadFile("/proc/sys/kernel/perf_event_paranoid"); readErr == nil {
		level = strings.TrimSpace(string(b))
	}
	return fmt.Errorf("%w: perf_event_paranoid=%s (lower it or grant CAP_PERFMON): %v",
		ErrNotSupported, level, err)
}
