package goschedkit

import "github.com/joeycumines/goschedkit/klog"

// tick.go implements spec §4.G's timer_interrupt/thread_tick: the one
// entry point driven by the Timer collaborator. Tick never switches
// threads directly — TIME_SLICE expiry only requests a yield via
// InterruptController.YieldOnReturn, consumed at the calling thread's
// next Checkpoint call, since this simulation cannot forcibly preempt
// arbitrary Go code mid-instruction (see SPEC_FULL.md §5).
//
// Tick is driven externally, once per elapsed Timer tick: a Timer
// collaborator only counts ticks, it does not call back into the
// kernel, so callers (tests, or cmd/schedsim's driver loop) must invoke
// Tick once for every unit Timer.Ticks() advances by. This keeps the
// kernel's scheduling decisions deterministic and exactly reproducible
// in tests, even when driven by a real wall-clock Timer.
func (k *Kernel) Tick() {
	k.big.Lock()
	defer k.big.Unlock()

	now := k.timer.Ticks()
	cur := k.current

	switch {
	case cur == k.idle:
		k.stats.idle.Add(1)
	case cur.isUser:
		k.stats.user.Add(1)
	default:
		k.stats.kernel.Add(1)
	}

	if cur != k.idle {
		cur.recentCPU = cur.recentCPU.AddInt(1)
	}
	k.threadTicks++

	k.advanceSleepers()

	if k.mlfqs {
		if k.timerFreq != 0 && now%k.timerFreq == 0 {
			k.decayLoadAvgAndRecentCPU()
		}
		if now%4 == 0 {
			k.recomputeAllMLFQSPriorities()
			k.ready.resortAll()
		}
	}

	if k.threadTicks >= k.timeSlice {
		k.interrupts.YieldOnReturn()
	}

	if k.trace != nil {
		tid := int64(-1)
		if cur != nil {
			tid = int64(cur.tid)
		}
		k.trace.Push(klog.Event{Tick: now, Category: "tick", TID: tid, Message: "timer tick"})
	}
}
