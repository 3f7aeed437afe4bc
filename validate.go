package hijack

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pboyd/hijack/internal/arch"
	"github.com/pboyd/hijack/internal/mem"
)

// validate checks that target can be hijacked, cheapest check first. The
// duplicate check is left to Prepare since it needs the registry lock.
func (e *Engine) validate(resolver SymbolResolver, target Addr, trampoline []byte) error {
	sym, ok := resolver.Resolve(target)
	if !ok {
		return errors.Mark(errors.Newf("no function contains %s", target), ErrTooShort)
	}
	if sym.Offset != 0 {
		return errors.Wrapf(ErrNotFunctionStart, "%s is %s+0x%x", target, sym.Name, sym.Offset)
	}
	if sym.Size < HijackSize {
		return errors.Wrapf(ErrTooShort, "%s is %d bytes, need %d", sym.Name, sym.Size, HijackSize)
	}

	if len(trampoline) == 0 {
		return nil
	}

	if len(trampoline) < TrampolineSize {
		return errors.Wrapf(ErrOutOfMemory, "trampoline region is %d bytes, need %d", len(trampoline), TrampolineSize)
	}

	if err := e.checkRegion(trampoline); err != nil {
		return err
	}

	// Read past the patched bytes so an instruction that starts inside
	// them can be decoded whole.
	code, err := e.mem.Read(target, arch.CodeWindow)
	if err != nil {
		return errors.Wrapf(err, "read prologue of %s", sym.Name)
	}
	if err := e.excise.CanExcise(target, code); err != nil {
		return errors.Mark(errors.Wrapf(err, "%s", sym.Name), ErrUnsupportedInstruction)
	}
	return nil
}

// checkRegion refuses a trampoline region that is not executable. When the
// memory cannot say, the region is trusted.
func (e *Engine) checkRegion(region []byte) error {
	checker, ok := e.mem.(RegionChecker)
	if !ok {
		return nil
	}

	addr := Addr(mem.Addr(region))
	exec, err := checker.Executable(addr, len(region))
	if err != nil {
		e.log.Debug("cannot check trampoline region", zap.Stringer("region", addr), zap.Error(err))
		return nil
	}
	if !exec {
		return errors.Wrapf(ErrTrampolineNotExecutable, "region at %s", addr)
	}
	return nil
}
