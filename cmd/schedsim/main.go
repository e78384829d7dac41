// Command schedsim demonstrates goschedkit by running a handful of
// threads under a manually-driven timer, printing each thread's
// lifecycle events as it runs. Run with: go run ./cmd/schedsim
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/joeycumines/goschedkit"
)

func main() {
	mlfqs := flag.Bool("mlfqs", false, "use the BSD-style MLFQS scheduler instead of priority donation")
	ticks := flag.Int("ticks", 200, "number of timer ticks to simulate")
	flag.Parse()

	timer := goschedkit.NewTestTimer(100)
	k, err := goschedkit.New(
		goschedkit.WithMLFQS(*mlfqs),
		goschedkit.WithLogger(goschedkit.NewDefaultLogger(goschedkit.LevelInfo)),
		goschedkit.WithCollaborators(nil, nil, nil, timer, nil),
	)
	if err != nil {
		panic(err)
	}
	if err := k.Start(); err != nil {
		panic(err)
	}

	lock := k.NewLock()

	worker := func(label string, work func(k *goschedkit.Kernel)) func(arg any) {
		return func(arg any) {
			fmt.Printf("%s: starting\n", label)
			work(k)
			fmt.Printf("%s: done\n", label)
		}
	}

	_, _ = k.Create("low", 20, worker("low", func(k *goschedkit.Kernel) {
		lock.Acquire()
		for i := 0; i < 3; i++ {
			k.Checkpoint()
		}
		lock.Release()
	}), nil)

	_, _ = k.Create("high", 50, worker("high", func(k *goschedkit.Kernel) {
		lock.Acquire()
		lock.Release()
	}), nil)

	_, _ = k.Create("sleeper", 30, worker("sleeper", func(k *goschedkit.Kernel) {
		k.Sleep(10)
	}), nil)

	go func() {
		for i := 0; i < *ticks; i++ {
			timer.Advance(1)
			k.Tick()
			time.Sleep(time.Millisecond)
		}
	}()
	// main is the running initial thread: the other threads only get the
	// CPU while it is blocked in the kernel.
	k.Sleep(uint64(*ticks))

	stats := k.Stats()
	fmt.Printf("stats: idle=%d kernel=%d user=%d load_avg=%d\n", stats.IdleTicks, stats.KernelTicks, stats.UserTicks, k.GetLoadAvg())
}
