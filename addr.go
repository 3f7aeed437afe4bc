package hijack

import (
	"fmt"
	"reflect"

	"github.com/cockroachdb/errors"

	"github.com/pboyd/hijack/internal/arch"
)

const (
	// HijackSize is the number of bytes saved from and written over the
	// start of a target.
	HijackSize = arch.HijackSize

	// TrampolineSize is the minimum length of a trampoline region.
	TrampolineSize = arch.TrampolineSize

	// PtrSize is the size of an address.
	PtrSize = arch.PtrSize
)

// Addr is the address of machine code in the running program.
type Addr uintptr

func (a Addr) String() string {
	return fmt.Sprintf("0x%x", uintptr(a))
}

// FuncAddr returns the entry point of the function fn.
//
// Closures share the code of the function literal that created them, so
// hijacking one hijacks them all.
func FuncAddr(fn any) (Addr, error) {
	fnv := reflect.ValueOf(fn)
	if fnv.Kind() != reflect.Func {
		return 0, errors.Newf("not a function, kind: %v", fnv.Kind())
	}
	if fnv.IsNil() {
		return 0, errors.New("nil function")
	}
	return Addr(fnv.Pointer()), nil
}
