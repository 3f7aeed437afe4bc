package hijack

import (
	"github.com/cockroachdb/errors"

	"github.com/pboyd/hijack/internal/mem"
)

// applyPatch overwrites the first HijackSize bytes of target with code.
//
// The activeness check has to run inside the barrier: only while nothing
// else can execute is the set of live instruction pointers stable. If the
// check fails nothing is written. Page protections change outside the
// barrier; the pages stay executable throughout.
func (e *Engine) applyPatch(target Addr, code []byte) (err error) {
	if len(code) != HijackSize {
		return errors.Newf("patch for %s is %d bytes, want %d", target, len(code), HijackSize)
	}

	restore, err := e.mem.Unprotect(target, HijackSize)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.CombineErrors(err, restore())
	}()

	return e.barrier.Run(func() error {
		if e.active.ActiveWithin(target, HijackSize) {
			return errors.Wrapf(ErrActivenessCheckFailed, "%s", target)
		}
		return e.mem.Write(target, code)
	})
}

// buildTrampoline fills region with the original prologue followed by a
// jump back into the original function.
func (e *Engine) buildTrampoline(region, original []byte, returnAddr Addr) error {
	buf := make([]byte, TrampolineSize)
	copy(buf, original)
	if err := e.jump.EncodeJump(buf[HijackSize:], returnAddr); err != nil {
		return err
	}

	// Nothing can run the region until the target is enabled, so there
	// is no need for the barrier.
	addr := Addr(mem.Addr(region))
	restore, err := e.mem.Unprotect(addr, len(buf))
	if err != nil {
		return err
	}
	return errors.CombineErrors(e.mem.Write(addr, buf), restore())
}

// jumpTo returns the bytes that redirect a target to dest.
func (e *Engine) jumpTo(dest Addr) ([]byte, error) {
	buf := make([]byte, HijackSize)
	if err := e.jump.EncodeJump(buf, dest); err != nil {
		return nil, err
	}
	return buf, nil
}
