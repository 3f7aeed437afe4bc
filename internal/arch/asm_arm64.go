package arch

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/cockroachdb/errors"
	"golang.org/x/arch/arm64/arm64asm"
)

const (
	// LDR X17, #8
	_LDR_X17 = uint32(0x58000051)

	// BR X17
	_BR_X17 = uint32(0xd61f0220)
)

// EncodeJump writes an absolute jump to dest at the start of buf:
//
//	LDR X17, #8
//	BR  X17
//	.quad dest
//
// X17 (IP1) is reserved for the linker, so clobbering it at a call boundary
// is safe.
func EncodeJump(buf []byte, dest uintptr) error {
	if len(buf) < JumpSize {
		return errors.Newf("buffer too small for jump instruction: %d < %d", len(buf), JumpSize)
	}

	binary.LittleEndian.PutUint32(buf[0:], _LDR_X17)
	binary.LittleEndian.PutUint32(buf[4:], _BR_X17)
	binary.LittleEndian.PutUint64(buf[8:], uint64(dest))

	// Pad the rest of the buffer with nulls
	for i := JumpSize; i < len(buf); i++ {
		buf[i] = 0
	}

	return nil
}

// CanExcise reports whether the first HijackSize bytes of code, which
// executes at pc, can be copied to a different address unchanged. Any
// PC-relative instruction (branches, ADR, ADRP, literal loads) cannot.
// Instructions are fixed width, so nothing past HijackSize is examined.
func CanExcise(pc uintptr, code []byte) error {
	if len(code) < HijackSize {
		return errors.Newf("need at least %d bytes of code, got %d", HijackSize, len(code))
	}

	for i := 0; i < HijackSize; i += 4 {
		instruction, err := arm64asm.Decode(code[i : i+4])
		if err != nil {
			return errors.Wrapf(err, "decode error at 0x%x (offset %d)", pc+uintptr(i), i)
		}

		for _, arg := range instruction.Args {
			if _, ok := arg.(arm64asm.PCRel); ok {
				return errors.Newf("PC-relative instruction at offset %d: %s", i, instruction)
			}
		}
	}
	return nil
}

// Disassemble renders code, as if loaded at pc, one instruction per line.
func Disassemble(code []byte, pc uintptr) (string, error) {
	var buf bytes.Buffer

	for i := 0; i < len(code)&^3; i += 4 {
		var asm string
		instruction, err := arm64asm.Decode(code[i:])
		if err == nil {
			asm = instruction.String()
		} else {
			asm = "?"
		}
		fmt.Fprintf(&buf, "0x%08x\t%-20s\t%s\n", pc+uintptr(i), hex.EncodeToString(code[i:i+4]), asm)
	}

	return buf.String(), nil
}
