//go:build windows

package mem

import (
	"syscall"

	"golang.org/x/sys/windows"
)

const (
	mprotectRX  = windows.PAGE_EXECUTE_READ
	mprotectRWX = windows.PAGE_EXECUTE_READWRITE

	// malloc turns PAGE_EXECUTE into PAGE_EXECUTE_READWRITE when mapping.
	mmapProt = windows.PAGE_EXECUTE
)

func mprotect(buf []byte, flags int) error {
	pageSize := syscall.Getpagesize()

	addr := Addr(buf)

	// Round address down to page boundary.
	pageStart := addr &^ (uintptr(pageSize) - 1)

	// Round up to cover complete pages.
	regionSize := (int(addr-pageStart) + cap(buf) + pageSize - 1) &^ (pageSize - 1)

	var oldFlags uint32
	return windows.VirtualProtect(pageStart, uintptr(regionSize), uint32(flags), &oldFlags)
}
