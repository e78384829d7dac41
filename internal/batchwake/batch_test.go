package batchwake

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type intQueue struct {
	items []int
}

func (q *intQueue) Len() int      { return len(q.items) }
func (q *intQueue) PeekMin() int  { return q.items[0] }
func (q *intQueue) PopMin() int {
	v := q.items[0]
	q.items = q.items[1:]
	return v
}

func TestDrainDueStopsAtFirstNotDue(t *testing.T) {
	q := &intQueue{items: []int{1, 2, 3, 10, 11}}
	got := DrainDue[int](q, func(v int) bool { return v <= 5 })
	require.Equal(t, []int{1, 2, 3}, got)
	require.Equal(t, []int{10, 11}, q.items)
}

func TestDrainDueAllDue(t *testing.T) {
	q := &intQueue{items: []int{1, 2, 3}}
	got := DrainDue[int](q, func(v int) bool { return true })
	require.Equal(t, []int{1, 2, 3}, got)
	require.Equal(t, 0, q.Len())
}

func TestDrainDueNoneDue(t *testing.T) {
	q := &intQueue{items: []int{10, 11}}
	got := DrainDue[int](q, func(v int) bool { return false })
	require.Nil(t, got)
	require.Equal(t, 2, q.Len())
}

func TestDrainDueEmptyQueue(t *testing.T) {
	q := &intQueue{}
	got := DrainDue[int](q, func(v int) bool { return true })
	require.Nil(t, got)
}
