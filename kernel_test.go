package goschedkit_test

import (
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/goschedkit"
	"github.com/stretchr/testify/require"
)

// assertPrioritiesInBounds fails t if any live thread's snapshot priority
// falls outside [PriMin, PriMax], per spec.md §3's invariant that every
// thread's effective priority is always a valid priority.
func assertPrioritiesInBounds(t *testing.T, k *goschedkit.Kernel) {
	t.Helper()
	for _, s := range k.Snapshot() {
		require.GreaterOrEqual(t, s.Priority, goschedkit.PriMin, "tid=%d", s.TID)
		require.LessOrEqual(t, s.Priority, goschedkit.PriMax, "tid=%d", s.TID)
	}
}

// driveTicks advances timer and calls k.Tick n times, from a goroutine
// that is NOT one of the kernel's own threads — mirroring how a real
// hardware timer interrupt arrives regardless of which thread currently
// holds the CPU.
func driveTicks(k *goschedkit.Kernel, timer *goschedkit.TestTimer, n int) {
	go func() {
		for i := 0; i < n; i++ {
			timer.Advance(1)
			k.Tick()
			time.Sleep(time.Millisecond)
		}
	}()
}

func newTestKernel(t *testing.T, opts ...goschedkit.KernelOption) (*goschedkit.Kernel, *goschedkit.TestTimer) {
	timer := goschedkit.NewTestTimer(100)
	allOpts := append([]goschedkit.KernelOption{
		goschedkit.WithCollaborators(nil, nil, nil, timer, nil),
		goschedkit.WithTimeSlice(1),
	}, opts...)
	k, err := goschedkit.New(allOpts...)
	require.NoError(t, err)
	require.NoError(t, k.Start())
	return k, timer
}

func TestAlarmClockWakesAfterDeadline(t *testing.T) {
	k, timer := newTestKernel(t)

	var mu sync.Mutex
	var woke bool

	_, err := k.Create("sleeper", 30, func(arg any) {
		k.Sleep(5)
		mu.Lock()
		woke = true
		mu.Unlock()
	}, nil)
	require.NoError(t, err)

	driveTicks(k, timer, 50)
	k.Sleep(20)

	mu.Lock()
	defer mu.Unlock()
	require.True(t, woke)
}

func TestPriorityPreemptionOnCreate(t *testing.T) {
	k, timer := newTestKernel(t)

	var mu sync.Mutex
	var order []string
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	_, err := k.Create("low", 10, func(arg any) {
		record("low-start")
		_, err := k.Create("high", 50, func(arg any) {
			record("high")
		}, nil)
		require.NoError(t, err)
		record("low-end")
	}, nil)
	require.NoError(t, err)

	driveTicks(k, timer, 50)
	k.Sleep(20)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"low-start", "high", "low-end"}, order)
}

func TestSimpleDonation(t *testing.T) {
	k, timer := newTestKernel(t)
	lock := k.NewLock()

	var mu sync.Mutex
	var order []string
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	var midPriority int

	_, err := k.Create("low", 10, func(arg any) {
		self := k.Current()
		lock.Acquire()
		_, err := k.Create("high", 50, func(arg any) {
			lock.Acquire()
			lock.Release()
			record("high")
		}, nil)
		require.NoError(t, err)
		midPriority = self.Priority()
		lock.Release()
		record("low")
	}, nil)
	require.NoError(t, err)

	driveTicks(k, timer, 50)
	k.Sleep(20)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 50, midPriority, "low should be boosted to high's priority while high waits on the lock")
	require.Equal(t, []string{"high", "low"}, order)
	assertPrioritiesInBounds(t, k)
}

// TestNestedDonationChain builds a three-link chain: high contends lockB
// (held by mid), mid — already boosted to high's priority — then
// contends lockA (held by low). low must receive high's priority
// transitively, not merely mid's original priority.
func TestNestedDonationChain(t *testing.T) {
	k, timer := newTestKernel(t)
	lockA := k.NewLock()
	lockB := k.NewLock()

	var mu sync.Mutex
	var order []string
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	var lowBoosted, midBoosted int

	_, err := k.Create("low", 10, func(arg any) {
		lockA.Acquire()
		low := k.Current()

		_, err := k.Create("mid", 30, func(arg any) {
			lockB.Acquire()
			mid := k.Current()

			_, err := k.Create("high", 50, func(arg any) {
				lockB.Acquire()
				lockB.Release()
				record("high")
			}, nil)
			require.NoError(t, err)

			lockA.Acquire()
			midBoosted = mid.Priority()
			lockA.Release()
			lockB.Release()
			record("mid")
		}, nil)
		require.NoError(t, err)

		lowBoosted = low.Priority()
		lockA.Release()
		record("low")
	}, nil)
	require.NoError(t, err)

	driveTicks(k, timer, 80)
	k.Sleep(30)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 50, midBoosted, "mid should still carry high's donated priority while it holds both locks")
	require.Equal(t, 50, lowBoosted, "low should receive high's priority transitively through mid")
	require.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestNoDonationUnderMLFQS(t *testing.T) {
	k, timer := newTestKernel(t, goschedkit.WithMLFQS(true))
	lock := k.NewLock()

	var mu sync.Mutex
	var midPriority int

	_, err := k.Create("low", 10, func(arg any) {
		self := k.Current()
		// Lower self below a fresh thread's default MLFQS priority (63,
		// at nice=0/recent_cpu=0) so a newly created contender is able to
		// preempt on creation, the same way the donation tests provoke
		// contention.
		k.SetNice(self, 10)
		lock.Acquire()

		_, err := k.Create("high", 50, func(arg any) {
			lock.Acquire()
			lock.Release()
		}, nil)
		require.NoError(t, err)

		mu.Lock()
		midPriority = self.Priority()
		mu.Unlock()
		lock.Release()
	}, nil)
	require.NoError(t, err)

	driveTicks(k, timer, 80)
	k.Sleep(30)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 43, midPriority, "MLFQS priority (63 - 2*nice) must hold steady; donation never applies under MLFQS")
}

func TestMLFQSLoadAvgIncreasesUnderLoad(t *testing.T) {
	k, timer := newTestKernel(t, goschedkit.WithMLFQS(true))

	done := make(chan struct{})
	_, err := k.Create("hog", 0, func(arg any) {
		// Stay runnable past the one-second boundary at tick 100
		// (TIMER_FREQ 100), so the load_avg update counts this thread.
		for timer.Ticks() < 110 {
			k.Checkpoint()
		}
		close(done)
	}, nil)
	require.NoError(t, err)

	driveTicks(k, timer, 150)
	// The test goroutine is the running initial thread; it has to block in
	// the kernel before hog can be dispatched.
	k.Sleep(120)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hog thread never completed")
	}

	k.Sleep(5)
	require.Greater(t, k.GetLoadAvg(), 0)
}

func TestSnapshotReflectsLiveThreads(t *testing.T) {
	k, timer := newTestKernel(t)

	_, err := k.Create("worker", 25, func(arg any) {
		// Still asleep (and so still live) when the snapshot is taken.
		k.Sleep(100)
	}, nil)
	require.NoError(t, err)

	driveTicks(k, timer, 10)
	k.Sleep(5)

	var names []string
	for _, s := range k.Snapshot() {
		names = append(names, s.Name)
	}
	require.Contains(t, names, "main", "the initial thread must appear in the snapshot")
	require.Contains(t, names, "idle")
	require.Contains(t, names, "worker")
}

func TestNewFailsWhenPagesExhausted(t *testing.T) {
	timer := goschedkit.NewTestTimer(100)
	k, err := goschedkit.New(
		goschedkit.WithCollaborators(goschedkit.FailingPageAllocator{}, nil, nil, timer, nil),
	)
	require.Error(t, err)
	require.Nil(t, k)
}

// budgetAllocator succeeds exactly n times, then fails every call after.
type budgetAllocator struct {
	n int
}

func (a *budgetAllocator) AllocZeroedPage() (goschedkit.StackHandle, bool) {
	if a.n <= 0 {
		return nil, false
	}
	a.n--
	return new(struct{}), true
}

func (a *budgetAllocator) FreePage(goschedkit.StackHandle) {}

func TestCreateFailsWhenPagesExhausted(t *testing.T) {
	timer := goschedkit.NewTestTimer(100)
	// New consumes one page (the initial thread), Start consumes one more
	// (the idle thread); budget of 2 leaves none for Create.
	k, err := goschedkit.New(
		goschedkit.WithCollaborators(&budgetAllocator{n: 2}, nil, nil, timer, nil),
	)
	require.NoError(t, err)
	require.NoError(t, k.Start())

	_, err = k.Create("worker", 10, func(arg any) {}, nil)
	require.ErrorIs(t, err, goschedkit.ErrThreadCreateFailed)
}
