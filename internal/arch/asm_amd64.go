package arch

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/cockroachdb/errors"
	"golang.org/x/arch/x86/x86asm"
)

const (
	opcodeINT3 = 0xcc
	opcodeJMP  = 0xff // JMP r/m64
	modrmRIP   = 0x25 // mod=00 reg=4 (JMP) rm=101 (RIP+disp32)
)

// EncodeJump writes an absolute jump to dest at the start of buf:
//
//	JMP [RIP+0]
//	.quad dest
//
// The rest of buf is padded with INT3 to match what the compiler does.
func EncodeJump(buf []byte, dest uintptr) error {
	const instructionSize = 14 // 2 byte opcode, 4 byte displacement, 8 byte address

	if len(buf) < instructionSize {
		return errors.Newf("buffer too small for jump instruction: %d < %d", len(buf), instructionSize)
	}

	buf[0] = opcodeJMP
	buf[1] = modrmRIP
	binary.LittleEndian.PutUint32(buf[2:], 0)
	binary.LittleEndian.PutUint64(buf[6:], uint64(dest))

	for i := instructionSize; i < len(buf); i++ {
		buf[i] = opcodeINT3
	}

	return nil
}

// CanExcise reports whether the first HijackSize bytes of code, which
// executes at pc, can be copied to a different address unchanged. Relative
// branches, RIP-relative operands and instructions that cross the
// HijackSize boundary cannot. Bytes past HijackSize are only used to decode
// an instruction that starts before it; pass CodeWindow bytes when possible.
func CanExcise(pc uintptr, code []byte) error {
	if len(code) < HijackSize {
		return errors.Newf("need at least %d bytes of code, got %d", HijackSize, len(code))
	}

	for i := 0; i < HijackSize; {
		instruction, err := x86asm.Decode(code[i:], 64)
		if err != nil {
			return errors.Wrapf(err, "decode error at 0x%x (offset %d)", pc+uintptr(i), i)
		}

		// A prefix with nothing after it decodes without an opcode.
		if instruction.Op == 0 {
			return errors.Newf("incomplete instruction at offset %d: %x", i, code[i:i+instruction.Len])
		}
		if i+instruction.Len > HijackSize {
			return errors.Newf("instruction at offset %d crosses the %d byte boundary: %s", i, HijackSize, instruction)
		}

		for _, arg := range instruction.Args {
			switch a := arg.(type) {
			case x86asm.Rel:
				dest := pc + uintptr(i+instruction.Len) + uintptr(int64(a))
				return errors.Newf("relative branch at offset %d to 0x%x: %s", i, dest, instruction)
			case x86asm.Mem:
				if a.Base == x86asm.RIP {
					return errors.Newf("RIP-relative operand at offset %d: %s", i, instruction)
				}
			}
		}

		i += instruction.Len
	}
	return nil
}

// Disassemble renders code, as if loaded at pc, one instruction per line.
func Disassemble(code []byte, pc uintptr) (string, error) {
	var buf bytes.Buffer

	for i := 0; i < len(code); {
		instruction, err := x86asm.Decode(code[i:], 64)
		if err != nil {
			return buf.String(), errors.Wrapf(err, "decode error at offset %d", i)
		}
		fmt.Fprintf(&buf, "0x%08x\t%-20s\t%s\n", pc+uintptr(i), hex.EncodeToString(code[i:i+instruction.Len]), instruction.String())

		i += instruction.Len
	}

	return buf.String(), nil
}
