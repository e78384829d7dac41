package goschedkit

// options.go configures Kernel construction, modeled directly on
// eventloop/options.go's LoopOption/loopOptionImpl/resolveLoopOptions
// triad.

const (
	// DefaultTimeSlice is TIME_SLICE from spec §4.F/glossary: ticks of
	// preemption granularity.
	DefaultTimeSlice = 4
	// DefaultTimerFrequency is TIMER_FREQ, ticks per second.
	DefaultTimerFrequency = 100
)

// kernelOptions holds configuration resolved by KernelOption values.
type kernelOptions struct {
	mlfqs          bool
	logger         Logger
	timeSlice      int
	timerFrequency uint64
	traceCapacity  int
	pages          PageAllocator
	ctxSwitch      ContextSwitch
	interrupts     InterruptController
	timer          Timer
	activator      AddressSpaceActivator
}

// KernelOption configures a Kernel instance.
type KernelOption interface {
	applyKernel(*kernelOptions) error
}

type kernelOptionImpl struct {
	applyKernelFunc func(*kernelOptions) error
}

func (k *kernelOptionImpl) applyKernel(opts *kernelOptions) error {
	return k.applyKernelFunc(opts)
}

// WithMLFQS selects the MLFQS scheduler (spec §6's single boot flag,
// immutable after New). Default false (priority scheduler with
// donation).
func WithMLFQS(enabled bool) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) error {
		opts.mlfqs = enabled
		return nil
	}}
}

// WithLogger sets the structured Logger the kernel writes through.
// Defaults to NewNoOpLogger().
func WithLogger(logger Logger) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithTimeSlice overrides TIME_SLICE. Defaults to DefaultTimeSlice.
func WithTimeSlice(ticks int) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) error {
		opts.timeSlice = ticks
		return nil
	}}
}

// WithTimerFrequency overrides TIMER_FREQ. Defaults to
// DefaultTimerFrequency.
func WithTimerFrequency(hz uint64) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) error {
		opts.timerFrequency = hz
		return nil
	}}
}

// WithTrace sets the capacity (number of events) of the diagnostic trace
// ring (klog). A capacity of 0 disables tracing. Defaults to 256.
func WithTrace(capacity int) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) error {
		opts.traceCapacity = capacity
		return nil
	}}
}

// WithCollaborators overrides one or more of the five out-of-scope
// collaborators from spec §6. Any nil argument keeps the default.
func WithCollaborators(pages PageAllocator, ctxSwitch ContextSwitch, interrupts InterruptController, timer Timer, activator AddressSpaceActivator) KernelOption {
	return &kernelOptionImpl{func(opts *kernelOptions) error {
		if pages != nil {
			opts.pages = pages
		}
		if ctxSwitch != nil {
			opts.ctxSwitch = ctxSwitch
		}
		if interrupts != nil {
			opts.interrupts = interrupts
		}
		if timer != nil {
			opts.timer = timer
		}
		if activator != nil {
			opts.activator = activator
		}
		return nil
	}}
}

func resolveKernelOptions(opts []KernelOption) (*kernelOptions, error) {
	cfg := &kernelOptions{
		logger:         NewNoOpLogger(),
		timeSlice:      DefaultTimeSlice,
		timerFrequency: DefaultTimerFrequency,
		traceCapacity:  256,
		pages:          NewInProcessPageAllocator(),
		ctxSwitch:      NewBatonContextSwitch(),
		activator:      NewNoopAddressSpaceActivator(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyKernel(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.timer == nil {
		cfg.timer = NewTestTimer(cfg.timerFrequency)
	}
	return cfg, nil
}
