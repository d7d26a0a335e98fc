// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package perfcount

import "context"

// Group is unavailable on this platform; every operation reports
// ErrNotSupported.
type Group struct{}

// Open reports ErrNotSupported.
func Open(events ...Event) (*Group, error) {
	return nil, ErrNotSupported
}

// Reset reports ErrNotSupported.
func (g *Group) Reset() error { return ErrNotSupported }

// Enable reports ErrNotSupported.
func (g *Group) Enable() error { return ErrNotSupported }

// Disable reports ErrNotSupported.
func (g *Group) Disable() error { return ErrNotSupported }

// Close is a no-op.
func (g *Group) Close() error { return nil }

// ReadCounts reports ErrNotSupported.
func (g *Group) ReadCounts() ([]Count, error) { return nil, ErrNotSupported }

// Measure reports ErrNotSupported without running f.
func Measure(events []Event, f func()) (Sample, error) {
	return Sample{}, ErrNotSupported
}

// Supported reports false.
func Supported() bool { return false }

// Command reports ErrNotSupported without starting the child.
func Command(ctx context.Context, events []Event, name string, args ...string) (Sample, error) {
	return Sample{}, ErrNotSupported
}
