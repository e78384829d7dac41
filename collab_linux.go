//go:build linux

package goschedkit

import (
	"golang.org/x/sys/unix"
)

// LinuxSystemTimer is a Timer driven by a Linux timerfd, the same
// OS-level wakeup primitive eventloop's poller_linux.go/wakeup_linux.go
// use for I/O readiness notification — here repurposed to drive tick
// delivery instead of FD readiness.
type LinuxSystemTimer struct {
	*SystemTimer
	fd int
}

// NewLinuxSystemTimer creates a timerfd-backed Timer ticking at freqHz.
// Callers must call Close when finished. Falls back to returning an
// error if timerfd_create fails (e.g. on restricted sandboxes); callers
// should fall back to NewSystemTimer in that case.
func NewLinuxSystemTimer(freqHz uint64) (*LinuxSystemTimer, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC)
	if err != nil {
		return nil, err
	}

	interval := unix.NsecToTimespec(int64(1e9) / int64(freqHz))
	spec := &unix.ItimerSpec{
		Interval: interval,
		Value:    interval,
	}
	if err := unix.TimerfdSettime(fd, 0, spec, nil); err != nil {
		unix.Close(fd)
		return nil, err
	}

	t := &LinuxSystemTimer{SystemTimer: &SystemTimer{freq: freqHz}, fd: fd}

	go func() {
		buf := make([]byte, 8)
		for {
			n, err := unix.Read(fd, buf)
			if err == unix.EINTR {
				continue
			}
			if err != nil || n != 8 {
				return
			}
			var expirations uint64
			for i := 0; i < 8; i++ {
				expirations |= uint64(buf[i]) << (8 * i)
			}
			t.ticks.Add(expirations)
		}
	}()

	return t, nil
}

// Close stops the timerfd.
func (t *LinuxSystemTimer) Close() error {
	return unix.Close(t.fd)
}
