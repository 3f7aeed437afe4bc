// Package mem reads and rewrites executable memory in the running process.
package mem

import (
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// Slice returns the n bytes at addr without copying them.
func Slice(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}

// Addr returns the address of the first byte of buf.
func Addr(buf []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
}

// Read returns a copy of the n bytes at addr.
func Read(addr uintptr, n int) ([]byte, error) {
	if addr == 0 {
		return nil, errors.New("read from nil address")
	}
	buf := make([]byte, n)
	copy(buf, Slice(addr, n))
	return buf, nil
}

// protMu serializes every change to page protections in the process, so one
// writer cannot drop a page back to read+execute under another.
var protMu sync.Mutex

// Unprotect makes the pages covering [addr, addr+n) writable. The returned
// function restores them to read+execute and must be called exactly once.
// No other protection change can happen in between.
func Unprotect(addr uintptr, n int) (restore func() error, err error) {
	if addr == 0 {
		return nil, errors.New("unprotect nil address")
	}

	code := Slice(addr, n)

	protMu.Lock()
	if err := mprotect(code, mprotectRWX); err != nil {
		protMu.Unlock()
		return nil, errors.Wrapf(err, "mprotect 0x%x+%d writable", addr, n)
	}

	return func() error {
		defer protMu.Unlock()
		if err := mprotect(code, mprotectRX); err != nil {
			return errors.Wrapf(err, "mprotect 0x%x+%d executable", addr, n)
		}
		return nil
	}, nil
}

// Store copies data over code at addr and flushes the instruction cache.
// The range must have been made writable with Unprotect.
func Store(addr uintptr, data []byte) error {
	if addr == 0 {
		return errors.New("write to nil address")
	}
	code := Slice(addr, len(data))
	copy(code, data)
	cacheflush(code)
	return nil
}

// Write copies data over the executable memory at addr. The pages covering
// the range are made writable for the duration of the copy and restored to
// read+execute afterwards.
func Write(addr uintptr, data []byte) error {
	if addr == 0 {
		return errors.New("write to nil address")
	}
	if len(data) == 0 {
		return nil
	}

	restore, err := Unprotect(addr, len(data))
	if err != nil {
		return err
	}
	err = Store(addr, data)
	return errors.CombineErrors(err, restore())
}
