// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package suite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWellFormed(t *testing.T) {
	descs := Default()
	require.NotEmpty(t, descs)

	names := make(map[string]struct{}, len(descs))
	for _, d := range descs {
		assert.NotEmpty(t, d.Name)
		assert.NotNil(t, d.Bench, "descriptor %q has no body", d.Name)
		_, dup := names[d.Name]
		assert.False(t, dup, "duplicate descriptor name %q", d.Name)
		names[d.Name] = struct{}{}
	}

	// Every primitive fast path has a baseline to stand against.
	for _, name := range []string{"CellGet", "BaselineSyncOnce", "BaselineMutexDCL"} {
		_, ok := names[name]
		assert.True(t, ok, "missing %q", name)
	}
}

func TestFilter(t *testing.T) {
	descs := Default()

	all, err := Filter(descs, "")
	require.NoError(t, err)
	assert.Len(t, all, len(descs))

	cells, err := Filter(descs, "^Cell")
	require.NoError(t, err)
	require.NotEmpty(t, cells)
	for _, d := range cells {
		assert.Regexp(t, "^Cell", d.Name)
	}

	none, err := Filter(descs, "^Nothing$")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = Filter(descs, "([")
	assert.Error(t, err)
}

func TestParallelMarks(t *testing.T) {
	for _, d := range Default() {
		want := false
		if len(d.Name) > len("Parallel") && d.Name[len(d.Name)-len("Parallel"):] == "Parallel" {
			want = true
		}
		assert.Equal(t, want, d.Parallel, "descriptor %q", d.Name)
	}
}

// TestBodiesExecute measures every body once so a broken setup fails
// here rather than halfway through a stored lab run.
func TestBodiesExecute(t *testing.T) {
	if testing.Short() {
		t.Skip("skip: measures every benchmark body")
	}
	for _, d := range Default() {
		t.Run(d.Name, func(t *testing.T) {
			r := testing.Benchmark(func(b *testing.B) {
				d.Bench(b)
			})
			assert.Positive(t, r.N)
		})
	}
}
