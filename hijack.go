package hijack

import (
	"context"
	"reflect"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pboyd/hijack/internal/stw"
)

// Engine owns the set of hijacked functions.
type Engine struct {
	cfg Config
	log *zap.Logger

	mem          CodeMemory
	active       ActivityChecker
	excise       ExciseChecker
	jump         JumpEncoder
	barrier      Barrier
	openResolver func() (SymbolResolver, error)

	reg *registry
}

// New returns an Engine that patches the running program. Options replace
// individual collaborators. Call Init before anything else.
func New(cfg Config, opts ...Option) *Engine {
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultConfig().RetryBackoff
	}

	e := &Engine{
		cfg:          cfg,
		log:          zap.NewNop(),
		mem:          processMemory{},
		active:       goroutineActivity{},
		excise:       archExcise{},
		jump:         archJump{},
		barrier:      stw.NewBarrier(cfg.BarrierTimeout),
		openResolver: openRuntimeResolver,
		reg:          newRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init locates the symbol table used to validate targets.
func (e *Engine) Init() error {
	resolver, err := e.openResolver()
	if err != nil {
		e.log.Error("symbol resolver unavailable", zap.Error(err))
		return errors.Mark(errors.Wrap(err, "init"), ErrSymbolResolverUnavailable)
	}

	e.reg.mu.Lock()
	e.reg.resolver = resolver
	e.reg.mu.Unlock()
	return nil
}

// Shutdown disables and removes every hook. It blocks until that succeeds
// or ctx is done.
func (e *Engine) Shutdown(ctx context.Context) error {
	return e.DisableAll(ctx, true)
}

// Prepare registers target to be redirected to dest. Nothing is written to
// target until Enable.
//
// If trampoline is not empty it must be executable memory of at least
// TrampolineSize bytes, normally from AllocTrampoline. A Go heap slice is
// refused with ErrTrampolineNotExecutable. Enable fills the region with
// target's original first instructions followed by a jump to
// target+HijackSize, so the replacement can call through to the original.
// The caller owns the region and must keep it alive until the hook is
// removed.
func (e *Engine) Prepare(target, dest Addr, trampoline []byte) error {
	resolver, err := e.reg.symbols()
	if err != nil {
		return err
	}

	log := e.log.With(zap.Stringer("target", target))

	if err := e.validate(resolver, target, trampoline); err != nil {
		log.Warn("cannot hijack", zap.Error(err))
		return err
	}

	if e.reg.contains(target) {
		log.Warn("already prepared, skip")
		return errors.Wrapf(ErrDuplicateTarget, "%s", target)
	}

	original, err := e.mem.Read(target, HijackSize)
	if err != nil {
		return errors.Wrapf(err, "snapshot %s", target)
	}

	h := &hook{
		target:   target,
		original: original,
		dest:     dest,
		// The trampoline resumes target just past the patched bytes.
		returnAddr: target + HijackSize,
	}
	if len(trampoline) > 0 {
		h.trampoline = trampoline
	}

	// Another Prepare may have inserted target since the check above.
	e.reg.mu.Lock()
	err = e.reg.insert(h)
	e.reg.mu.Unlock()
	if err != nil {
		log.Warn("already prepared, skip")
		return errors.Wrapf(err, "%s", target)
	}

	log.Info("prepared", zap.Stringer("dest", dest), zap.Bool("trampoline", h.trampoline != nil))
	return nil
}

// PrepareFunc is Prepare for Go functions. fn and replacement must have
// identical signatures.
func (e *Engine) PrepareFunc(fn, replacement any, trampoline []byte) error {
	fnv := reflect.ValueOf(fn)
	if fnv.Kind() != reflect.Func {
		return errors.Newf("not a function, kind: %v", fnv.Kind())
	}
	newFnv := reflect.ValueOf(replacement)
	if newFnv.Kind() != reflect.Func {
		return errors.Newf("not a function, kind: %v", newFnv.Kind())
	}
	if diff := diffFuncs(fnv, newFnv); diff != nil {
		return errors.Wrap(diff.Error(), "function signatures do not match")
	}

	target, err := FuncAddr(fn)
	if err != nil {
		return err
	}
	dest, err := FuncAddr(replacement)
	if err != nil {
		return err
	}
	return e.Prepare(target, dest, trampoline)
}

// Enable installs the jump for a prepared target. Enabling an enabled
// target does nothing.
func (e *Engine) Enable(target Addr) error {
	log := e.log.With(zap.Stringer("target", target))

	e.reg.mu.Lock()
	defer e.reg.mu.Unlock()

	h := e.reg.find(target)
	if h == nil {
		log.Info("not prepared, skip")
		return errors.Wrapf(ErrNotPrepared, "%s", target)
	}
	if h.enabled {
		log.Debug("already hijacked, skip")
		return nil
	}

	if h.trampoline != nil {
		if err := e.buildTrampoline(h.trampoline, h.original, h.returnAddr); err != nil {
			return errors.Mark(errors.Wrapf(err, "build trampoline for %s", target), ErrPatchFailed)
		}
	}

	code, err := e.jumpTo(h.dest)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "encode jump for %s", target), ErrPatchFailed)
	}

	if err := e.applyPatch(target, code); err != nil {
		log.Warn("enable failed", zap.Error(err))
		return errors.Mark(errors.Wrapf(err, "enable %s", target), ErrPatchFailed)
	}
	h.enabled = true

	log.Info("enabled", zap.Stringer("dest", h.dest))
	return nil
}

// Disable restores the original bytes of target. Disabling a disabled
// target does nothing. If remove is set and target ends up disabled, it is
// also forgotten; a later Enable returns ErrNotPrepared.
func (e *Engine) Disable(target Addr, remove bool) error {
	log := e.log.With(zap.Stringer("target", target))

	e.reg.mu.Lock()
	defer e.reg.mu.Unlock()

	h := e.reg.find(target)
	if h == nil {
		log.Info("not prepared, skip")
		return errors.Wrapf(ErrNotPrepared, "%s", target)
	}

	if h.enabled {
		if err := e.applyPatch(target, h.original); err != nil {
			log.Warn("disable failed", zap.Error(err))
			return errors.Mark(errors.Wrapf(err, "disable %s", target), ErrPatchFailed)
		}
		h.enabled = false
		log.Info("disabled")
	} else {
		log.Debug("already disabled")
	}

	if remove {
		e.reg.remove(target)
		log.Info("removed")
	}
	return nil
}

// DisableAll disables every hook, and removes them if remove is set.
//
// A hook that cannot be disabled is left in place and the whole pass is
// retried after Config.RetryBackoff. With the default config this repeats
// until a pass succeeds. It stops early, returning an error, when
// Config.MaxRetries is exhausted or ctx is done. ctx is only checked between
// passes; a patch in progress is never interrupted.
func (e *Engine) DisableAll(ctx context.Context, remove bool) error {
	pass := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		return e.disableAllPass(remove)
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(e.cfg.RetryBackoff)
	if e.cfg.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, uint64(e.cfg.MaxRetries))
	}

	err := backoff.RetryNotify(pass, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		e.log.Warn("some hooks still enabled, retrying", zap.Error(err), zap.Duration("backoff", next))
	})
	if err != nil {
		return errors.Wrap(err, "disable all")
	}

	if remove {
		e.log.Info("all hijacked targets disabled and removed")
	} else {
		e.log.Info("all hijacked targets disabled")
	}
	return nil
}

func (e *Engine) disableAllPass(remove bool) error {
	e.reg.mu.Lock()
	defer e.reg.mu.Unlock()

	var (
		failed  int
		lastErr error
	)
	e.reg.forEach(func(h *hook) bool {
		if h.enabled {
			if err := e.applyPatch(h.target, h.original); err != nil {
				failed++
				lastErr = errors.Wrapf(err, "disable %s", h.target)
				return true
			}
			h.enabled = false
		}
		if remove {
			e.reg.remove(h.target)
		}
		return true
	})

	if failed > 0 {
		return errors.Mark(errors.Wrapf(lastErr, "%d hooks could not be disabled", failed), ErrPatchFailed)
	}
	return nil
}
