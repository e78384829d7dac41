package goschedkit

import (
	"sync"
	"sync/atomic"
	"time"
)

// collab.go defines the five out-of-scope collaborators from spec §6 as Go
// interfaces, plus reference in-process implementations. The core package
// depends only on these interfaces, never on a concrete collaborator,
// mirroring how eventloop abstracts OS-specific I/O behind FastPoller and
// selects a concrete implementation per platform.

// StackHandle is the opaque, collaborator-supplied resource a thread's
// record occupies. In a real kernel this would be the 4 KiB page the
// thread's stack lives in; in this simulation it carries whatever the
// PageAllocator wants to track (nothing, by default).
type StackHandle any

// PageAllocator supplies and reclaims thread-sized memory blocks (spec §6).
type PageAllocator interface {
	// AllocZeroedPage returns a new handle, or ok=false on allocation
	// failure (the one recoverable failure in spec §7).
	AllocZeroedPage() (handle StackHandle, ok bool)
	// FreePage reclaims a handle returned by AllocZeroedPage.
	FreePage(handle StackHandle)
}

// ContextSwitch saves prev's execution state, resumes next, and returns
// whichever thread was switched away from (spec §6).
type ContextSwitch interface {
	Switch(prev, next *Thread) (prevReturned *Thread)
}

// InterruptController models enable/disable of interrupts and tick
// delivery control (spec §6). In this kernel, "disabling interrupts" is
// realized as holding Kernel.big; level is boolean (disabled or not),
// matching Pintos, which has no nested interrupt-priority levels.
type InterruptController interface {
	Disable() (prevLevel bool)
	SetLevel(level bool)
	GetLevel() bool
	InInterruptContext() bool
	YieldOnReturn()
	// ConsumeYieldOnReturn atomically reads and clears the pending
	// yield-on-return flag set by YieldOnReturn, for Kernel.Checkpoint.
	ConsumeYieldOnReturn() bool
}

// Timer is the monotonic tick source (spec §6).
type Timer interface {
	Ticks() uint64
	Frequency() uint64
}

// AddressSpaceActivator installs a thread's user address space, if any
// (spec §6). This simulation has no user-program loader in scope; the
// reference implementation is a no-op.
type AddressSpaceActivator interface {
	Activate(t *Thread)
}

// --- reference implementations ---

// inProcessPages is a trivial PageAllocator: every call succeeds, unless
// failNext is set (for exercising the ErrThreadCreateFailed path in
// tests).
type inProcessPages struct {
	mu       sync.Mutex
	failNext bool
}

// NewInProcessPageAllocator returns the default PageAllocator: allocation
// never fails in normal operation.
func NewInProcessPageAllocator() PageAllocator {
	return &inProcessPages{}
}

func (p *inProcessPages) AllocZeroedPage() (StackHandle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext {
		p.failNext = false
		return nil, false
	}
	return new(struct{}), true
}

func (p *inProcessPages) FreePage(StackHandle) {}

// FailingPageAllocator always fails allocation, for exercising
// ErrThreadCreateFailed in tests.
type FailingPageAllocator struct{}

func (FailingPageAllocator) AllocZeroedPage() (StackHandle, bool) { return nil, false }
func (FailingPageAllocator) FreePage(StackHandle)                 {}

// batonSwitch is the reference ContextSwitch. Every thread's goroutine
// blocks on its own baton channel whenever it is not the one holding the
// (simulated) CPU; Switch hands control to next by sending it prev on
// next's channel, then blocks on prev's own channel until some later
// Switch call hands control back. The value received is, by
// construction, whichever thread was running immediately beforehand —
// exactly the "prev_returned" spec §6 describes, without needing any
// shared mutable bookkeeping in Kernel.
type batonSwitch struct{}

// NewBatonContextSwitch returns the default ContextSwitch collaborator.
func NewBatonContextSwitch() ContextSwitch { return batonSwitch{} }

func (batonSwitch) Switch(prev, next *Thread) *Thread {
	next.baton <- prev
	return <-prev.baton
}

// mutexInterrupts is the reference InterruptController. It keeps a
// reference to the Kernel's big mutex but never locks it: the interrupt
// level is a boolean flag that Disable and SetLevel set atomically, and
// the kernel's own critical sections lock big directly.
type mutexInterrupts struct {
	mu            *sync.Mutex
	disabled      atomic.Bool
	yieldOnReturn atomic.Bool
	inInterrupt   atomic.Bool
}

func newMutexInterrupts(mu *sync.Mutex) *mutexInterrupts {
	return &mutexInterrupts{mu: mu}
}

func (m *mutexInterrupts) Disable() bool {
	prev := m.disabled.Swap(true)
	return prev
}

func (m *mutexInterrupts) SetLevel(level bool) {
	m.disabled.Store(level)
}

func (m *mutexInterrupts) GetLevel() bool {
	return m.disabled.Load()
}

func (m *mutexInterrupts) InInterruptContext() bool {
	return m.inInterrupt.Load()
}

func (m *mutexInterrupts) YieldOnReturn() {
	m.yieldOnReturn.Store(true)
}

func (m *mutexInterrupts) ConsumeYieldOnReturn() bool {
	return m.yieldOnReturn.Swap(false)
}

// SystemTimer is the reference Timer, backed by a real ticker. On Linux
// it is expected to be paired with a timerfd-driven driver (see
// NewLinuxSystemTimer in collab_linux.go); on other platforms, or for
// deterministic tests, use NewSystemTimer (time.Ticker-based) or
// NewTestTimer (manually advanced).
type SystemTimer struct {
	freq  uint64
	ticks atomic.Uint64
}

// NewSystemTimer returns a Timer driven by a time.Ticker firing at
// freqHz, starting a background goroutine that increments its counter.
// Callers needing to stop the ticker should prefer NewTestTimer in tests.
func NewSystemTimer(freqHz uint64, stop <-chan struct{}) *SystemTimer {
	t := &SystemTimer{freq: freqHz}
	interval := time.Second / time.Duration(freqHz)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				t.ticks.Add(1)
			}
		}
	}()
	return t
}

func (t *SystemTimer) Ticks() uint64     { return t.ticks.Load() }
func (t *SystemTimer) Frequency() uint64 { return t.freq }

// TestTimer is a manually-advanced Timer, for deterministic scenario
// tests: nothing ticks until Advance is called. Advance is typically
// called from a dedicated driver goroutine while kernel threads read
// Ticks concurrently, so the counter is atomic.
type TestTimer struct {
	freq  uint64
	ticks atomic.Uint64
}

// NewTestTimer returns a Timer that only advances when Advance is called.
func NewTestTimer(freqHz uint64) *TestTimer {
	return &TestTimer{freq: freqHz}
}

func (t *TestTimer) Ticks() uint64     { return t.ticks.Load() }
func (t *TestTimer) Frequency() uint64 { return t.freq }
func (t *TestTimer) Advance(n uint64)  { t.ticks.Add(n) }

// noopActivator is the reference AddressSpaceActivator: this simulation
// never loads a user program, so activation is a no-op (spec §1's
// non-goal: "No ... user-program address-space activation" beyond the
// interface shape itself).
type noopActivator struct{}

// NewNoopAddressSpaceActivator returns the default AddressSpaceActivator.
func NewNoopAddressSpaceActivator() AddressSpaceActivator { return noopActivator{} }

func (noopActivator) Activate(*Thread) {}
