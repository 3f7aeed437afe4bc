// Package arch holds the machine-specific pieces of patching: the absolute
// jump written over a target, the check that a prologue can be copied
// elsewhere, and a disassembler for diagnostics.
package arch

import "unsafe"

const (
	// HijackSize is the number of leading bytes of a target that are saved
	// and overwritten.
	HijackSize = 16

	// JumpSize is the length of the sequence written by EncodeJump.
	JumpSize = 16

	// TrampolineSize is the smallest region that can hold a copied prologue
	// followed by the jump back.
	TrampolineSize = HijackSize + JumpSize

	// CodeWindow is how many bytes CanExcise wants: the patched bytes plus
	// room for the longest instruction (15 bytes on amd64) that starts
	// inside them.
	CodeWindow = HijackSize + 15

	// PtrSize is the size of an address.
	PtrSize = int(unsafe.Sizeof(uintptr(0)))
)
