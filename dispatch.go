package goschedkit

import (
	"time"

	"github.com/joeycumines/goschedkit/internal/batchwake"
)

// dispatch.go implements spec §4.D/§6's schedule(): pick the next
// runnable thread and switch the simulated CPU to it. dispatch must be
// called with Kernel.big held, and returns with it held again; in
// between, it releases big and blocks on the ContextSwitch collaborator,
// exactly like real interrupts are re-enabled for the duration of a
// context switch.

// advanceSleepers wakes every thread whose sleep deadline has elapsed,
// using internal/batchwake's accumulate-then-flush drain (grounded on
// microbatch's batching loop): due sleepers are popped first, then all
// unblocked together.
func (k *Kernel) advanceSleepers() {
	now := k.timer.Ticks()
	due := batchwake.DrainDue[*Thread](k.sleeping, func(t *Thread) bool {
		return t.wakeAt <= now
	})
	for _, t := range due {
		t.wakeAt = 0
		k.unblock(t)
	}
}

// dispatch picks the next thread to run (falling back to idle) and
// switches to it. Must be called with big held; returns with big held.
func (k *Kernel) dispatch() {
	if k.mlfqs {
		k.recomputeAllMLFQSPriorities()
		k.ready.resortAll()
	}

	k.advanceSleepers()

	next := k.ready.popMax()
	if next == nil {
		next = k.idle
	}
	cur := k.current

	if next == cur {
		// Nothing else runnable: the current thread keeps the CPU,
		// regardless of whatever transitional status its caller set.
		cur.status.Store(StatusRunning)
		k.threadTicks = 0
		if cur == k.idle {
			// Approximates HLT: avoid busy-spinning the host CPU while
			// genuinely nothing is runnable.
			k.big.Unlock()
			time.Sleep(100 * time.Microsecond)
			k.big.Lock()
		}
		return
	}

	k.current = next
	k.big.Unlock()
	prevReturned := k.ctxSwitch.Switch(cur, next)
	k.big.Lock()
	k.resumeTail(cur, prevReturned)
}
