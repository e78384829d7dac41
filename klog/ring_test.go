package klog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingBasic(t *testing.T) {
	r := NewRing(4)
	require.Equal(t, 0, r.Len())
	r.Push(Event{Tick: 1, Category: "tick", TID: 1, Message: "a"})
	r.Push(Event{Tick: 2, Category: "tick", TID: 2, Message: "b"})
	require.Equal(t, 2, r.Len())
	snap := r.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, uint64(1), snap[0].Tick)
	require.Equal(t, uint64(2), snap[1].Tick)
}

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(2)
	for i := 0; i < 5; i++ {
		r.Push(Event{Tick: uint64(i), Message: "x"})
	}
	require.Equal(t, 2, r.Len())
	snap := r.Snapshot()
	require.Equal(t, uint64(3), snap[0].Tick)
	require.Equal(t, uint64(4), snap[1].Tick)
}

func TestRingRoundsCapacityUp(t *testing.T) {
	r := NewRing(3)
	require.Equal(t, 4, len(r.s))
}
