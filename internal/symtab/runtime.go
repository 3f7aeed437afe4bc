package symtab

import (
	"reflect"
	"runtime"

	"github.com/cockroachdb/errors"
)

// Runtime resolves addresses in the running program using the runtime's own
// function table, so it works on stripped binaries.
type Runtime struct {
	cache cache
}

// OpenRuntime checks that the runtime function table is reachable by
// resolving one of this package's own functions.
func OpenRuntime() (*Runtime, error) {
	r := &Runtime{cache: newCache()}

	probe := reflect.ValueOf(OpenRuntime).Pointer()
	sym, ok := r.Resolve(probe)
	if !ok || sym.Offset != 0 || sym.Size == 0 {
		return nil, errors.Wrap(ErrUnavailable, "runtime function table did not resolve a known function")
	}
	return r, nil
}

// Resolve returns the function containing pc.
func (r *Runtime) Resolve(pc uintptr) (Symbol, bool) {
	return r.cache.lookup(pc, resolveRuntime)
}

func resolveRuntime(pc uintptr) (Symbol, bool) {
	info := findfunc(pc)
	if info._func == nil || info.datap == nil {
		return Symbol{}, false
	}

	entry := info.datap.text + uintptr(info.entryOff)

	// To find the length, look at the offsets of every function and find
	// the one that comes immediately after this one.
	funcOffset := info.entryOff
	length := uint32(info.datap.etext - entry)

	for _, ft := range info.datap.ftab {
		// Does this function come before the one we're looking for?
		if ft.entryoff <= funcOffset {
			continue
		}

		// Is the distance between these two functions less than what we've seen before?
		testLength := ft.entryoff - funcOffset
		if testLength < length {
			length = testLength
		}
	}

	var name string
	if fn := runtime.FuncForPC(entry); fn != nil {
		name = fn.Name()
	}

	return Symbol{
		Name:   name,
		Entry:  entry,
		Size:   uintptr(length),
		Offset: pc - entry,
	}, true
}
