// Package stw pauses the Go scheduler around code patches and checks that no
// goroutine is executing inside a region about to be rewritten.
package stw

import (
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrPauseTimeout is returned when the barrier could not be entered in time.
var ErrPauseTimeout = errors.New("timed out pausing execution")

// Barrier runs callbacks while the rest of the program is held off.
//
// Only one callback runs at a time process-wide. While it runs the calling
// goroutine is wired to its OS thread and GOMAXPROCS is 1, so no other
// goroutine can execute Go code until the callback returns. Changing
// GOMAXPROCS stops the world inside the runtime, which also drains every
// other P before the callback starts.
//
// This is unsafe in the same way writing to the text segment is unsafe:
// the callback must be short, must not block, and must not start goroutines.
type Barrier struct {
	timeout time.Duration
}

// sem serializes every Barrier in the process. GOMAXPROCS is global state,
// so two barriers must never overlap even if they are different values.
var sem = make(chan struct{}, 1)

// NewBarrier returns a barrier that gives up with ErrPauseTimeout if another
// barrier holds the world for longer than timeout. A zero timeout waits
// forever.
func NewBarrier(timeout time.Duration) *Barrier {
	return &Barrier{timeout: timeout}
}

// Run pauses the world, runs fn, and resumes. fn's error is returned as-is.
func (b *Barrier) Run(fn func() error) error {
	if err := b.acquire(); err != nil {
		return err
	}
	defer func() { <-sem }()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	procs := runtime.GOMAXPROCS(1)
	defer runtime.GOMAXPROCS(procs)

	return fn()
}

func (b *Barrier) acquire() error {
	if b.timeout <= 0 {
		sem <- struct{}{}
		return nil
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
		return nil
	case <-timer.C:
		return errors.Wrapf(ErrPauseTimeout, "after %s", b.timeout)
	}
}
