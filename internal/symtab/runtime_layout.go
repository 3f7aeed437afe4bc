package symtab

import "unsafe"

// These mirror the leading fields of the runtime's function table types.
// Only the prefixes that are read are declared; the runtime owns the memory.

type funcInfo struct {
	*_func
	datap *moduledata
}

type _func struct {
	entryOff uint32 // start pc, as offset from moduledata.text
}

// moduledata records information about the layout of the executable
// image. It is written by the linker and must match
// cmd/link/internal/ld/symtab.go:symtab up to etext.
type moduledata struct {
	pcHeader     unsafe.Pointer
	funcnametab  []byte
	cutab        []uint32
	filetab      []byte
	pctab        []byte
	pclntable    []byte
	ftab         []functab
	findfunctab  uintptr
	minpc, maxpc uintptr

	text, etext uintptr
}

type functab struct {
	entryoff uint32 // relative to runtime.text
	funcoff  uint32
}

//go:linkname findfunc runtime.findfunc
func findfunc(pc uintptr) funcInfo
