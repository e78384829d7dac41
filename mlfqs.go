package goschedkit

import "github.com/joeycumines/goschedkit/fixedpoint"

// mlfqs.go implements spec §4.F's BSD-style scheduler: the per-tick
// recent_cpu increment, the per-second load_avg/recent_cpu decay, and the
// priority formula. Tick (tick.go) drives them in the operation order the
// original thread.c uses (decay before priority recompute, both gated on
// the global tick count rather than per-thread counters); dispatch
// (dispatch.go) also recomputes every priority before picking a thread.

// readyThreadCount is "ready_threads" from the load_avg formula: the
// number of threads running or ready to run, excluding the idle thread.
func (k *Kernel) readyThreadCount() int {
	n := k.ready.Len()
	if k.current != nil && k.current != k.idle {
		n++
	}
	return n
}

// decayLoadAvgAndRecentCPU recomputes load_avg once, then every live
// thread's recent_cpu, per the formulas in spec §4.F:
//
//	load_avg'  = (59/60)*load_avg + (1/60)*ready_threads
//	recent_cpu' = (2*load_avg)/(2*load_avg+1) * recent_cpu + nice
func (k *Kernel) decayLoadAvgAndRecentCPU() {
	readyCnt := fixedpoint.FromInt(int32(k.readyThreadCount()))
	k.loadAvg = fixedpoint.FromFrac(59, 60).Mul(k.loadAvg).Add(fixedpoint.FromFrac(1, 60).Mul(readyCnt))

	twiceLoad := k.loadAvg.MulInt(2)
	coef := twiceLoad.Div(twiceLoad.AddInt(1))
	for e := k.allThreads.Front(); e != nil; e = e.Next() {
		t := e.Value.(*Thread)
		if t == k.idle {
			continue
		}
		t.recentCPU = coef.Mul(t.recentCPU).AddInt(int32(t.niceness))
	}
}

// recomputeMLFQSPriority applies spec §4.F's priority formula to t:
//
//	priority = clamp(PRI_MAX - round(recent_cpu/4) - 2*nice, PRI_MIN, PRI_MAX)
//
// Under MLFQS, initial_priority and priority always coincide: donation is
// inert (spec §3).
func (k *Kernel) recomputeMLFQSPriority(t *Thread) {
	p := PriMax - int(t.recentCPU.DivInt(4).Round()) - 2*t.niceness
	if p < PriMin {
		p = PriMin
	}
	if p > PriMax {
		p = PriMax
	}
	t.priority = p
	t.initialPriority = p
	if t.Status() == StatusReady {
		k.ready.fix(t)
	}
}

func (k *Kernel) recomputeAllMLFQSPriorities() {
	for e := k.allThreads.Front(); e != nil; e = e.Next() {
		t := e.Value.(*Thread)
		if t == k.idle {
			continue
		}
		k.recomputeMLFQSPriority(t)
	}
}
