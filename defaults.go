package hijack

import (
	"github.com/pboyd/hijack/internal/arch"
	"github.com/pboyd/hijack/internal/mem"
	"github.com/pboyd/hijack/internal/stw"
	"github.com/pboyd/hijack/internal/symtab"
)

// Implementations of the collaborators for the running process.

type processMemory struct{}

func (processMemory) Read(addr Addr, n int) ([]byte, error) {
	return mem.Read(uintptr(addr), n)
}

func (processMemory) Unprotect(addr Addr, n int) (func() error, error) {
	return mem.Unprotect(uintptr(addr), n)
}

func (processMemory) Write(addr Addr, data []byte) error {
	return mem.Store(uintptr(addr), data)
}

func (processMemory) Executable(addr Addr, n int) (bool, error) {
	return mem.Executable(uintptr(addr), n)
}

type goroutineActivity struct{}

func (goroutineActivity) ActiveWithin(addr Addr, size int) bool {
	return stw.ActiveWithin(uintptr(addr), size)
}

type archExcise struct{}

func (archExcise) CanExcise(addr Addr, code []byte) error {
	return arch.CanExcise(uintptr(addr), code)
}

type archJump struct{}

func (archJump) EncodeJump(buf []byte, dest Addr) error {
	return arch.EncodeJump(buf, uintptr(dest))
}

type symtabResolver struct {
	symtab.Resolver
}

func (r symtabResolver) Resolve(addr Addr) (Symbol, bool) {
	sym, ok := r.Resolver.Resolve(uintptr(addr))
	return Symbol{Name: sym.Name, Size: sym.Size, Offset: sym.Offset}, ok
}

func openRuntimeResolver() (SymbolResolver, error) {
	r, err := symtab.OpenRuntime()
	if err != nil {
		return nil, err
	}
	return symtabResolver{r}, nil
}
