// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package perfcount

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleForTest() Sample {
	return Sample{
		Wall: 100 * time.Millisecond,
		Counts: []Count{
			{Event: Instructions, Value: 4_000_000},
			{Event: Cycles, Value: 2_000_000},
			{Event: CacheReferences, Value: 50_000},
			{Event: CacheMisses, Value: 5_000},
		},
	}
}

func TestSampleLookup(t *testing.T) {
	s := sampleForTest()

	c, ok := s.Lookup(Cycles)
	require.True(t, ok)
	assert.Equal(t, uint64(2_000_000), c.Value)

	_, ok = s.Lookup(BranchMisses)
	assert.False(t, ok)

	assert.Equal(t, uint64(4_000_000), s.Value(Instructions))
	assert.Zero(t, s.Value(BranchMisses))
}

func TestSampleIPC(t *testing.T) {
	s := sampleForTest()

	ipc, ok := s.IPC()
	require.True(t, ok)
	assert.InDelta(t, 2.0, ipc, 1e-9)

	// Missing cycles: no ratio
	noCycles := Sample{Counts: []Count{{Event: Instructions, Value: 1}}}
	_, ok = noCycles.IPC()
	assert.False(t, ok)

	// Zero cycles: no ratio
	zeroCycles := Sample{Counts: []Count{
		{Event: Instructions, Value: 1},
		{Event: Cycles, Value: 0},
	}}
	_, ok = zeroCycles.IPC()
	assert.False(t, ok)
}

func TestSampleMissRatio(t *testing.T) {
	s := sampleForTest()

	ratio, ok := s.MissRatio(CacheMisses, CacheReferences)
	require.True(t, ok)
	assert.InDelta(t, 0.1, ratio, 1e-9)

	_, ok = s.MissRatio(L1DLoadMisses, L1DLoads)
	assert.False(t, ok)
}

func TestSamplePerOp(t *testing.T) {
	s := sampleForTest()

	perOp := s.PerOp(1000)
	assert.InDelta(t, 4000.0, perOp[Instructions], 1e-9)
	assert.InDelta(t, 5.0, perOp[CacheMisses], 1e-9)
}

func TestParseEvents(t *testing.T) {
	events, err := ParseEvents([]string{"instructions", "cycles", "L1-icache-load-misses"})
	require.NoError(t, err)
	assert.Equal(t, []Event{Instructions, Cycles, L1ILoadMisses}, events)

	_, err = ParseEvents([]string{"instructions", "flux-capacitor-stalls"})
	require.ErrorIs(t, err, ErrUnknownEvent)
}

func TestEventSets(t *testing.T) {
	assert.Len(t, DefaultEvents(), 6)
	assert.Contains(t, StatEvents(), TaskClock)
	assert.Contains(t, ICacheEvents(), L1ILoadMisses)
	assert.Contains(t, DCacheEvents(), L1DLoadMisses)

	sets := [][]Event{DefaultEvents(), StatEvents(), ICacheEvents(), DCacheEvents()}
	for _, set := range sets {
		for _, ev := range set {
			assert.True(t, known(ev), "event %s must be mappable", ev)
		}
	}
}
