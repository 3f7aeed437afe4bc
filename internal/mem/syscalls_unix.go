//go:build unix

package mem

import (
	"golang.org/x/sys/unix"
)

const (
	mprotectRX  = unix.PROT_READ | unix.PROT_EXEC
	mprotectRWX = unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC

	// Arena pages start out writable so the allocator can set up its
	// headers. They are dropped to mprotectRX after every mutation.
	mmapProt = mprotectRWX
)

func mprotect(buf []byte, flags int) error {
	addr := Addr(buf)

	pageSize := unix.Getpagesize()

	// Round address down to page boundary.
	// Example: addr=4196 with pageSize=4096 becomes 4096.
	pageStart := addr - (addr % uintptr(pageSize))

	// Calculate how many bytes from pageStart we need to cover.
	// This includes the offset from pageStart to addr, plus the requested length.
	offsetWithinPage := int(addr - pageStart)
	totalBytes := offsetWithinPage + cap(buf)

	// Round up to cover complete pages.
	regionSize := (totalBytes + pageSize - 1) / pageSize * pageSize

	return unix.Mprotect(Slice(pageStart, regionSize), flags)
}
