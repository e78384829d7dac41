package goschedkit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func readyTestThread(tid TID, priority int) *Thread {
	return newThread(nil, tid, "t", priority, nil, nil, nil)
}

func TestReadyQueuePopsHighestPriorityFirst(t *testing.T) {
	q := newReadyQueue()
	low := readyTestThread(1, 10)
	mid := readyTestThread(2, 30)
	high := readyTestThread(3, 50)

	q.push(mid)
	q.push(low)
	q.push(high)

	require.Equal(t, high, q.popMax())
	require.Equal(t, mid, q.popMax())
	require.Equal(t, low, q.popMax())
	require.Nil(t, q.popMax())
}

func TestReadyQueueBreaksTiesByLowerTID(t *testing.T) {
	q := newReadyQueue()
	a := readyTestThread(5, 20)
	b := readyTestThread(2, 20)
	c := readyTestThread(9, 20)

	q.push(a)
	q.push(b)
	q.push(c)

	require.Equal(t, b, q.popMax())
	require.Equal(t, a, q.popMax())
	require.Equal(t, c, q.popMax())
}

func TestReadyQueuePeekDoesNotRemove(t *testing.T) {
	q := newReadyQueue()
	a := readyTestThread(1, 10)
	q.push(a)

	require.Equal(t, a, q.peekMax())
	require.Equal(t, 1, q.Len())
	require.Equal(t, a, q.popMax())
	require.Nil(t, q.peekMax())
}

func TestReadyQueueRemove(t *testing.T) {
	q := newReadyQueue()
	a := readyTestThread(1, 10)
	b := readyTestThread(2, 30)
	c := readyTestThread(3, 20)
	q.push(a)
	q.push(b)
	q.push(c)

	q.remove(c)
	require.Equal(t, 2, q.Len())
	require.Equal(t, b, q.popMax())
	require.Equal(t, a, q.popMax())

	// removing something already absent must not panic or corrupt state.
	q.remove(c)
}

func TestReadyQueueFixReordersAfterPriorityChange(t *testing.T) {
	q := newReadyQueue()
	a := readyTestThread(1, 10)
	b := readyTestThread(2, 30)
	q.push(a)
	q.push(b)

	a.priority = 99
	q.fix(a)

	require.Equal(t, a, q.popMax())
	require.Equal(t, b, q.popMax())
}

func TestReadyQueueResortAll(t *testing.T) {
	q := newReadyQueue()
	a := readyTestThread(1, 10)
	b := readyTestThread(2, 30)
	c := readyTestThread(3, 20)
	q.push(a)
	q.push(b)
	q.push(c)

	a.priority, b.priority, c.priority = 40, 5, 15
	q.resortAll()

	require.Equal(t, a, q.popMax())
	require.Equal(t, c, q.popMax())
	require.Equal(t, b, q.popMax())
}
