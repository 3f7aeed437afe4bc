package hijack

import "go.uber.org/zap"

// CodeMemory reads and writes executable memory.
type CodeMemory interface {
	Read(addr Addr, n int) ([]byte, error)

	// Unprotect makes [addr, addr+n) writable until restore is called.
	// The engine calls it before pausing the world and restore after, so
	// the paused window holds no page protection syscalls.
	Unprotect(addr Addr, n int) (restore func() error, err error)

	// Write stores all of data at addr, which must be unprotected.
	Write(addr Addr, data []byte) error
}

// RegionChecker is an optional CodeMemory extension. Prepare uses it to
// refuse trampoline regions outside executable memory, such as Go heap
// slices, before anything writes to them.
type RegionChecker interface {
	Executable(addr Addr, n int) (bool, error)
}

// ActivityChecker reports whether any execution context has an instruction
// pointer (or a return address) inside [addr, addr+size).
type ActivityChecker interface {
	ActiveWithin(addr Addr, size int) bool
}

// ExciseChecker returns an error if code, which executes at addr, cannot be
// copied to another address and still behave the same.
type ExciseChecker interface {
	CanExcise(addr Addr, code []byte) error
}

// JumpEncoder writes an absolute jump to dest at the start of buf.
type JumpEncoder interface {
	EncodeJump(buf []byte, dest Addr) error
}

// Symbol describes the function containing an address.
type Symbol struct {
	Name   string
	Size   uintptr
	Offset uintptr // distance from the function's entry point
}

// SymbolResolver finds the function containing addr.
type SymbolResolver interface {
	Resolve(addr Addr) (Symbol, bool)
}

// Barrier runs fn with every other execution unit paused. If the world
// cannot be paused fn is not called.
type Barrier interface {
	Run(fn func() error) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

func WithCodeMemory(m CodeMemory) Option {
	return func(e *Engine) {
		e.mem = m
	}
}

func WithActivityChecker(c ActivityChecker) Option {
	return func(e *Engine) {
		e.active = c
	}
}

func WithExciseChecker(c ExciseChecker) Option {
	return func(e *Engine) {
		e.excise = c
	}
}

func WithJumpEncoder(j JumpEncoder) Option {
	return func(e *Engine) {
		e.jump = j
	}
}

func WithBarrier(b Barrier) Option {
	return func(e *Engine) {
		e.barrier = b
	}
}

// WithSymbolResolver sets the function Init uses to obtain a resolver.
func WithSymbolResolver(open func() (SymbolResolver, error)) Option {
	return func(e *Engine) {
		e.openResolver = open
	}
}
