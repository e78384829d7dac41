package goschedkit

import (
	"container/list"
	"sync/atomic"

	"github.com/joeycumines/goschedkit/fixedpoint"
)

// TID is a unique, monotonically allocated thread identifier.
type TID int64

// TIDError is returned by Create when thread creation fails (spec §3, §7).
const TIDError TID = -1

// Priority bounds, per spec §3.
const (
	PriMin = 0
	PriMax = 63
)

// Niceness bounds, per spec §4.F.
const (
	NiceMin = -20
	NiceMax = 20
)

// threadMagic is the sentinel written at thread-record initialization and
// checked on every Current() call; a mismatch indicates stack-record
// corruption (spec §3, §7).
const threadMagic uint32 = 0xc1a55eed

// Status is one of the four lifecycle states a Thread may occupy.
type Status uint32

const (
	// StatusRunning is the single currently-executing thread.
	StatusRunning Status = iota
	// StatusReady is runnable, sitting on the ready list.
	StatusReady
	// StatusBlocked is waiting on a lock, a sleep deadline, or another
	// primitive; not on the ready list.
	StatusBlocked
	// StatusDying has called Exit; removed from allThreads, awaiting page
	// reclamation by the next thread dispatched.
	StatusDying
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "RUNNING"
	case StatusReady:
		return "READY"
	case StatusBlocked:
		return "BLOCKED"
	case StatusDying:
		return "DYING"
	default:
		return "UNKNOWN"
	}
}

// statusBox is an atomically-readable status cell, modeled on eventloop's
// FastState: every mutation in this kernel happens under Kernel.big (the
// simulated interrupts-disabled section), but Load is kept lock-free so
// diagnostics and Current() can observe status without contending the big
// lock.
type statusBox struct {
	v atomic.Uint32
}

func newStatusBox(s Status) *statusBox {
	b := &statusBox{}
	b.v.Store(uint32(s))
	return b
}

func (b *statusBox) Load() Status   { return Status(b.v.Load()) }
func (b *statusBox) Store(s Status) { b.v.Store(uint32(s)) }

// Thread is the per-thread record described by spec §3. Exactly one live
// Thread has StatusRunning at a time; that invariant is enforced entirely
// by Kernel, never by Thread itself.
type Thread struct {
	tid    TID
	name   string // truncated to nameCap bytes, for debugging
	status *statusBox

	priority        int // current effective priority
	initialPriority int // priority requested by SetPriority, pre-donation

	waitingOn *Lock // lock this thread is blocked acquiring, nil otherwise

	donations      *list.List    // ordered (high->low priority) donor list, held by the lock HOLDER
	donationElem   *list.Element // this thread's membership token in some holder's donations list, nil if detached
	donationHolder *Thread       // the holder that owns donationElem's list, nil if detached

	niceness  int
	recentCPU fixedpoint.T

	wakeAt uint64 // absolute tick deadline, valid only while sleeping

	magic uint32

	allElem *list.Element // membership token in Kernel.allThreads

	readyIndex int // index in Kernel.ready heap, -1 if not present
	sleepIndex int // index in Kernel.sleeping heap, -1 if not present

	entry  func(arg any)
	arg    any
	isUser bool

	// baton is the reference ContextSwitch's handoff channel: receiving a
	// value means this thread now holds the CPU, and the received value
	// is the thread it is taking over from (spec §6's "prev_returned").
	baton chan *Thread

	stack StackHandle // opaque collaborator-supplied resource, reclaimed on exit

	kernel *Kernel
}

const nameCap = 16

// TID returns the thread's identifier.
func (t *Thread) TID() TID { return t.tid }

// Name returns the thread's (possibly truncated) debug name.
func (t *Thread) Name() string { return t.name }

// Status returns the thread's current lifecycle state.
func (t *Thread) Status() Status { return t.status.Load() }

// Priority returns the thread's current effective priority.
func (t *Thread) Priority() int { return t.priority }

// InitialPriority returns the priority requested by the last SetPriority
// call (or at creation), before any donation.
func (t *Thread) InitialPriority() int { return t.initialPriority }

// Niceness returns the thread's MLFQS niceness.
func (t *Thread) Niceness() int { return t.niceness }

// RecentCPU returns the thread's MLFQS recent_cpu estimator.
func (t *Thread) RecentCPU() fixedpoint.T { return t.recentCPU }

func truncateName(name string) string {
	if len(name) > nameCap {
		return name[:nameCap]
	}
	return name
}

func newThread(k *Kernel, tid TID, name string, priority int, entry func(arg any), arg any, stack StackHandle) *Thread {
	t := &Thread{
		tid:             tid,
		name:            truncateName(name),
		status:          newStatusBox(StatusBlocked), // unblocked into READY by caller
		priority:        priority,
		initialPriority: priority,
		donations:       list.New(),
		readyIndex:      -1,
		sleepIndex:      -1,
		entry:           entry,
		arg:             arg,
		baton:           make(chan *Thread),
		magic:           threadMagic,
		stack:           stack,
		kernel:          k,
	}
	return t
}

// checkMagic halts the kernel if the thread's sentinel has been
// corrupted, per spec §3/§7 (stack overflow detection).
func (t *Thread) checkMagic(log Logger) {
	if t.magic != threadMagic {
		halt(log, ReasonStackOverflow, "thread %d (%s): magic corrupted, stack overflow suspected", t.tid, t.name)
	}
}

// effectivePriority computes max(initial_priority, highest donor priority),
// per spec §3's invariant and §4.E's definition.
func (t *Thread) effectivePriority() int {
	eff := t.initialPriority
	if t.donations.Len() > 0 {
		head := t.donations.Front().Value.(*Thread)
		if head.priority > eff {
			eff = head.priority
		}
	}
	return eff
}
