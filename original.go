package hijack

import (
	"reflect"
	"unsafe"
)

// Original returns a function that behaves like fn did before it was
// hijacked, by calling through its trampoline. If fn is not hijacked, is
// disabled, or was prepared without a trampoline, fn itself is returned.
//
// If fn is not a function Original returns the zero value of T.
func Original[T any](e *Engine, fn T) T {
	fnv := reflect.ValueOf(fn)
	if fnv.Kind() != reflect.Func || fnv.IsNil() {
		var zero T
		return zero
	}

	t := e.reg.mu.RLock()
	defer e.reg.mu.RUnlock(t)

	h := e.reg.find(Addr(fnv.Pointer()))
	if h == nil || !h.enabled || h.trampoline == nil {
		return fn
	}

	return funcOf[T](h.trampoline)
}

// funcOf converts executable code into a func value of type T. A func value
// points at a closure whose first word is the code pointer, so keep the
// code pointer in a heap cell and point at that.
func funcOf[T any](code []byte) T {
	entry := unsafe.SliceData(code)
	closure := &entry
	return *(*T)(unsafe.Pointer(&closure))
}
