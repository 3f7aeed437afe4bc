// Package symtab maps code addresses to the functions that contain them.
package symtab

import (
	"github.com/cockroachdb/errors"
	"github.com/puzpuzpuz/xsync/v4"
)

// ErrUnavailable is returned when no symbol table can be located.
var ErrUnavailable = errors.New("symbol table unavailable")

// Symbol describes the function covering an address.
type Symbol struct {
	Name   string
	Entry  uintptr
	Size   uintptr
	Offset uintptr // address - Entry
}

// Resolver finds the function containing pc.
type Resolver interface {
	Resolve(pc uintptr) (Symbol, bool)
}

// cache memoizes lookups. Symbol tables never change for the life of a
// process (or a file on disk), so entries are never invalidated.
type cache struct {
	syms *xsync.Map[uintptr, Symbol]
}

func newCache() cache {
	return cache{syms: xsync.NewMap[uintptr, Symbol]()}
}

func (c cache) lookup(pc uintptr, resolve func(uintptr) (Symbol, bool)) (Symbol, bool) {
	if sym, ok := c.syms.Load(pc); ok {
		return sym, true
	}
	sym, ok := resolve(pc)
	if ok {
		c.syms.Store(pc, sym)
	}
	return sym, ok
}
