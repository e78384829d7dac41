package goschedkit

import (
	"container/list"
	"errors"
	"sync"

	"github.com/joeycumines/goschedkit/fixedpoint"
	"github.com/joeycumines/goschedkit/klog"
)

// kernel.go is the dispatcher's home: the Kernel struct bundles the ready
// and sleep queues, the thread registry, and the five collaborators from
// spec §6, modeled on eventloop's Loop struct (a single owning struct
// wiring together its poller, timer heap and callback registry behind
// one entry-point API).

// Kernel is a single simulated CPU's scheduler: exactly one Thread has
// StatusRunning at any quiescent point (spec §3 invariant 1).
type Kernel struct {
	// big is the simulated "interrupts disabled" section: every mutator
	// of ready/sleeping/allThreads/donations runs with big held, per
	// spec §5.
	big sync.Mutex

	ready      *readyQueue
	sleeping   *sleepQueue
	allThreads *list.List

	idle    *Thread
	initial *Thread
	current *Thread

	nextTID TID

	mlfqs   bool
	loadAvg fixedpoint.T

	threadTicks int
	timeSlice   int
	timerFreq   uint64

	pages      PageAllocator
	ctxSwitch  ContextSwitch
	interrupts InterruptController
	timer      Timer
	activator  AddressSpaceActivator

	log   Logger
	trace *klog.Ring

	stats statCounters

	started bool
}

// New constructs a Kernel but does not start it: the idle thread and
// initial-thread bootstrap happen in Start, mirroring Pintos's split
// between thread_init (called very early, before a heap exists) and
// thread_start (which actually creates the idle thread).
func New(opts ...KernelOption) (*Kernel, error) {
	cfg, err := resolveKernelOptions(opts)
	if err != nil {
		return nil, err
	}
	k := &Kernel{
		ready:      newReadyQueue(),
		sleeping:   newSleepQueue(),
		allThreads: list.New(),
		mlfqs:      cfg.mlfqs,
		timeSlice:  cfg.timeSlice,
		timerFreq:  cfg.timerFrequency,
		pages:      cfg.pages,
		ctxSwitch:  cfg.ctxSwitch,
		timer:      cfg.timer,
		activator:  cfg.activator,
		log:        cfg.logger,
	}
	if cfg.interrupts != nil {
		k.interrupts = cfg.interrupts
	} else {
		k.interrupts = newMutexInterrupts(&k.big)
	}
	if cfg.traceCapacity > 0 {
		k.trace = klog.NewRing(cfg.traceCapacity)
	}

	stack, ok := k.pages.AllocZeroedPage()
	if !ok {
		return nil, ErrThreadCreateFailed
	}
	k.nextTID = 1
	k.initial = newThread(k, k.allocTID(), "main", PriMax, nil, nil, stack)
	k.initial.status.Store(StatusRunning)
	k.initial.allElem = k.allThreads.PushBack(k.initial)
	k.current = k.initial

	return k, nil
}

func (k *Kernel) allocTID() TID {
	tid := k.nextTID
	k.nextTID++
	return tid
}

// Start creates the idle thread and must be called once, from the same
// goroutine that called New, before any Tick, Create, Block, or Yield
// call (spec §6's thread_start boundary).
func (k *Kernel) Start() error {
	k.big.Lock()
	if k.started {
		k.big.Unlock()
		return errors.New("goschedkit: Kernel already started")
	}
	k.started = true
	stack, ok := k.pages.AllocZeroedPage()
	if !ok {
		k.big.Unlock()
		return ErrThreadCreateFailed
	}
	idle := newThread(k, k.allocTID(), "idle", PriMin, idleEntry, k, stack)
	idle.status.Store(StatusBlocked)
	idle.allElem = k.allThreads.PushBack(idle)
	k.idle = idle
	k.big.Unlock()

	go k.runThread(idle)
	return nil
}

func idleEntry(arg any) {
	k := arg.(*Kernel)
	for {
		k.Block()
	}
}

// Current returns the thread presently executing, as observed by the
// caller's own goroutine (valid only when called from within a thread
// the Kernel is driving).
func (k *Kernel) Current() *Thread {
	k.big.Lock()
	defer k.big.Unlock()
	if k.current != nil {
		k.current.checkMagic(k.log)
	}
	return k.current
}

// Create allocates a new Thread, places it on the ready list, and spawns
// its goroutine. Returns TIDError and ErrThreadCreateFailed if the page
// allocator is exhausted (spec §3, §7's one recoverable failure).
func (k *Kernel) Create(name string, priority int, entry func(arg any), arg any) (TID, error) {
	k.big.Lock()
	stack, ok := k.pages.AllocZeroedPage()
	if !ok {
		k.big.Unlock()
		return TIDError, ErrThreadCreateFailed
	}
	t := newThread(k, k.allocTID(), name, priority, entry, arg, stack)
	if k.mlfqs {
		// Under MLFQS, priority is entirely a function of niceness and
		// recent_cpu; the caller-supplied priority is ignored, matching
		// thread.c's thread_create (spec §4.F).
		k.recomputeMLFQSPriority(t)
	}
	t.allElem = k.allThreads.PushBack(t)
	// The goroutine must exist before yieldIfHigher can switch to t.
	go k.runThread(t)
	k.unblock(t)
	k.yieldIfHigher()
	tid := t.tid
	k.big.Unlock()

	return tid, nil
}

// runThread is the top-level body of every Thread's goroutine except the
// initial (bootstrap) thread, which has no goroutine of its own: it is
// whichever OS thread called New/Start.
func (k *Kernel) runThread(t *Thread) {
	prevReturned := <-t.baton
	k.big.Lock()
	k.resumeTail(t, prevReturned)
	k.big.Unlock()

	if t.entry != nil {
		t.entry(t.arg)
	}
	k.Exit()
}

// resumeTail runs the bookkeeping spec §4.D/§6 assigns to "whichever
// thread is now running": mark RUNNING, reset thread_ticks, activate its
// address space, and free the page of whoever it took over from, if that
// thread was DYING. Must be called with big held.
func (k *Kernel) resumeTail(self *Thread, prevReturned *Thread) {
	self.status.Store(StatusRunning)
	k.threadTicks = 0
	k.activator.Activate(self)
	if prevReturned != nil && prevReturned != k.initial && prevReturned.Status() == StatusDying {
		k.pages.FreePage(prevReturned.stack)
	}
}

// unblock moves t from BLOCKED (or newly-created) to READY and pushes it
// onto the ready queue. Caller must hold big.
func (k *Kernel) unblock(t *Thread) {
	t.status.Store(StatusReady)
	k.ready.push(t)
}

// Unblock is the exported form of unblock, for collaborators or lock
// internals waking a thread blocked on a condition other than the sleep
// queue.
func (k *Kernel) Unblock(t *Thread) {
	k.big.Lock()
	defer k.big.Unlock()
	k.unblock(t)
	k.yieldIfHigher()
}

// Block transitions the calling thread to BLOCKED and dispatches away
// from it. The caller is responsible for having already arranged some
// other code path to Unblock it; Block never returns until that happens.
func (k *Kernel) Block() {
	if k.interrupts.InInterruptContext() {
		halt(k.log, ReasonMisuse, "Block called from interrupt context")
	}
	k.big.Lock()
	t := k.current
	t.status.Store(StatusBlocked)
	k.dispatch()
	k.big.Unlock()
}

// yield moves the calling thread back onto the ready queue at its current
// priority and dispatches. Caller must already hold big; returns with big
// held, matching dispatch's own convention.
func (k *Kernel) yield() {
	t := k.current
	if t != k.idle {
		t.status.Store(StatusReady)
		k.ready.push(t)
	} else {
		t.status.Store(StatusBlocked)
	}
	k.dispatch()
}

// Yield moves the calling thread back onto the ready queue at its
// current priority and dispatches, implementing spec §4.B/§4.E's
// voluntary-yield entry point.
func (k *Kernel) Yield() {
	k.big.Lock()
	k.yield()
	k.big.Unlock()
}

// Checkpoint is a voluntary preemption point: entry functions performing
// any nontrivial work should call it periodically so that TIME_SLICE
// expiry (which this simulation cannot enforce by asynchronously
// preempting arbitrary Go code) actually takes effect. See SPEC_FULL.md
// §5.
func (k *Kernel) Checkpoint() {
	if k.interrupts.ConsumeYieldOnReturn() {
		k.Yield()
	}
}

// Exit transitions the calling thread to DYING, removes it from
// allThreads, and dispatches away from it permanently; it never returns.
func (k *Kernel) Exit() {
	k.big.Lock()
	t := k.current
	t.status.Store(StatusDying)
	if t.allElem != nil {
		k.allThreads.Remove(t.allElem)
		t.allElem = nil
	}
	k.dispatch()
	k.big.Unlock()
	// dispatch() never hands the baton back to a DYING thread, so
	// control never actually returns here; block forever defensively.
	select {}
}

// Sleep blocks the calling thread until Tick observes ticks >= wakeAt,
// implementing spec §4.A's timer_sleep.
func (k *Kernel) Sleep(ticks uint64) {
	k.big.Lock()
	t := k.current
	if ticks == 0 {
		k.big.Unlock()
		return
	}
	t.wakeAt = k.timer.Ticks() + ticks
	t.status.Store(StatusBlocked)
	k.sleeping.push(t)
	k.dispatch()
	k.big.Unlock()
}

// SetPriority implements spec §4.E's set_priority: updates
// initial_priority, recomputes effective priority, and yields if the
// thread dropped below the new ready-list maximum. Halts with ReasonMisuse
// when MLFQS is enabled.
func (k *Kernel) SetPriority(t *Thread, priority int) {
	k.big.Lock()
	defer k.big.Unlock()
	if k.mlfqs {
		halt(k.log, ReasonMisuse, "SetPriority called with MLFQS enabled")
	}
	t.initialPriority = priority
	k.recomputePriority(t)
	if t == k.current {
		k.yieldIfHigher()
	}
}

// GetPriority returns t's current effective priority.
func (k *Kernel) GetPriority(t *Thread) int {
	k.big.Lock()
	defer k.big.Unlock()
	return t.priority
}

// SetNice implements spec §4.F's set_nice: updates niceness, recomputes
// the thread's MLFQS priority immediately, and yields if necessary.
func (k *Kernel) SetNice(t *Thread, nice int) {
	k.big.Lock()
	defer k.big.Unlock()
	if nice < NiceMin {
		nice = NiceMin
	}
	if nice > NiceMax {
		nice = NiceMax
	}
	t.niceness = nice
	if k.mlfqs {
		k.recomputeMLFQSPriority(t)
	}
	if t == k.current {
		k.yieldIfHigher()
	}
}

// GetNice returns t's niceness.
func (k *Kernel) GetNice(t *Thread) int {
	k.big.Lock()
	defer k.big.Unlock()
	return t.niceness
}

// GetLoadAvg returns 100*load_avg rounded to the nearest integer, per
// spec §4.F's reporting convention.
func (k *Kernel) GetLoadAvg() int {
	k.big.Lock()
	defer k.big.Unlock()
	return int(k.loadAvg.MulInt(100).Round())
}

// GetRecentCPU returns 100*recent_cpu rounded to the nearest integer for
// thread t.
func (k *Kernel) GetRecentCPU(t *Thread) int {
	k.big.Lock()
	defer k.big.Unlock()
	return int(t.recentCPU.MulInt(100).Round())
}

// Trace returns the kernel's diagnostic trace ring, or nil if tracing was
// disabled via WithTrace(0).
func (k *Kernel) Trace() *klog.Ring {
	return k.trace
}

// Foreach calls fn for every live thread (including idle and initial),
// in creation order, holding big for the duration of the call, per spec
// §4's "thread_foreach" utility.
func (k *Kernel) Foreach(fn func(t *Thread)) {
	k.big.Lock()
	defer k.big.Unlock()
	for e := k.allThreads.Front(); e != nil; e = e.Next() {
		fn(e.Value.(*Thread))
	}
}

// ThreadSnapshot is a point-in-time, race-free copy of one thread's
// diagnostic fields, for introspection without holding a reference to the
// live *Thread across Kernel calls.
type ThreadSnapshot struct {
	TID       TID
	Name      string
	Status    Status
	Priority  int
	Niceness  int
	RecentCPU fixedpoint.T
}

// Snapshot returns a ThreadSnapshot for every live thread, in creation
// order, modeled on thread.c's thread_print_stats debug helper (not part
// of spec.md's explicit interface list, but present in the original
// implementation this kernel is grounded on).
func (k *Kernel) Snapshot() []ThreadSnapshot {
	k.big.Lock()
	defer k.big.Unlock()
	out := make([]ThreadSnapshot, 0, k.allThreads.Len())
	for e := k.allThreads.Front(); e != nil; e = e.Next() {
		t := e.Value.(*Thread)
		out = append(out, ThreadSnapshot{
			TID:       t.tid,
			Name:      t.name,
			Status:    t.Status(),
			Priority:  t.priority,
			Niceness:  t.niceness,
			RecentCPU: t.recentCPU,
		})
	}
	return out
}
