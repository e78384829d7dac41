package goschedkit

import "sync/atomic"

// metrics.go holds the in-memory tick counters spec §4.G/§6 describes as
// "persisted state: none... statistics are in-memory counters," mirroring
// eventloop/metrics.go's atomic-counter-plus-snapshot shape.

// Stats is a point-in-time snapshot of the kernel's tick accounting.
type Stats struct {
	IdleTicks   int64
	KernelTicks int64
	UserTicks   int64
}

type statCounters struct {
	idle   atomic.Int64
	kernel atomic.Int64
	user   atomic.Int64
}

func (s *statCounters) snapshot() Stats {
	return Stats{
		IdleTicks:   s.idle.Load(),
		KernelTicks: s.kernel.Load(),
		UserTicks:   s.user.Load(),
	}
}

// Stats returns a snapshot of the kernel's idle/kernel/user tick counters.
func (k *Kernel) Stats() Stats {
	return k.stats.snapshot()
}
