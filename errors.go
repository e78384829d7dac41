package goschedkit

import (
	"errors"
	"fmt"
)

// ErrThreadCreateFailed is returned by Kernel.Create when the page
// allocator collaborator fails to supply a thread-sized page. It is the
// one non-fatal, propagated failure in this kernel (spec §7): callers
// receive TIDError rather than a halt.
var ErrThreadCreateFailed = errors.New("goschedkit: thread create: page allocation failed")

// Reason classifies why the kernel halted.
type Reason int

const (
	// ReasonInvariant marks a broken scheduler invariant: a status/queue
	// mismatch, a donation-chain cycle, or similar impossible state.
	ReasonInvariant Reason = iota
	// ReasonStackOverflow marks thread-record magic corruption, caught on
	// the next Current() call.
	ReasonStackOverflow
	// ReasonMisuse marks a caller violating a documented precondition,
	// e.g. SetPriority under MLFQS, or Block from interrupt context.
	ReasonMisuse
)

func (r Reason) String() string {
	switch r {
	case ReasonInvariant:
		return "invariant violation"
	case ReasonStackOverflow:
		return "stack overflow"
	case ReasonMisuse:
		return "misuse"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// HaltError is the diagnostic carried by the panic a halting kernel
// raises. A real kernel would stop the CPU; a Go process panics instead,
// but preserves the reason so tests (and operators) can tell why.
type HaltError struct {
	Reason  Reason
	Message string
	Cause   error
}

func (e *HaltError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("goschedkit: halt (%s): %s: %v", e.Reason, e.Message, e.Cause)
	}
	return fmt.Sprintf("goschedkit: halt (%s): %s", e.Reason, e.Message)
}

// Unwrap exposes the underlying cause, if any, enabling errors.Is/errors.As
// through the halt's cause chain.
func (e *HaltError) Unwrap() error {
	return e.Cause
}

// halt logs the failure then panics with a *HaltError. There is no
// recovery path: every row of spec §7's error table other than thread
// creation is a programmer error, surfaced by assertion failure.
func halt(log Logger, reason Reason, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Log(LogEntry{
		Level:    LevelError,
		Category: "halt",
		Message:  msg,
	})
	panic(&HaltError{Reason: reason, Message: msg})
}
