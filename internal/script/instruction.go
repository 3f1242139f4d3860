package script

import (
	"encoding/binary"
	"fmt"
)

// Instruction is a single decoded instruction.
type Instruction struct {
	Address uint32 // offset in the code section at decode time
	Opcode  Opcode
	Operand []byte // nil for opcodes without operand
}

// Size returns the encoded size of the instruction in bytes.
func (ins Instruction) Size() int {
	return 1 + len(ins.Operand)
}

// Target returns the code address that a jump instruction refers to.
func (ins Instruction) Target() (uint32, bool) {
	if !ins.Opcode.IsJump() || len(ins.Operand) != 4 {
		return 0, false
	}
	return Reverse32(binary.LittleEndian.Uint32(ins.Operand)), true
}

// String returns a listing style representation of the instruction.
func (ins Instruction) String() string {
	if target, ok := ins.Target(); ok {
		return fmt.Sprintf("%08X %s %08X", ins.Address, ins.Opcode, target)
	}
	if len(ins.Operand) == 0 {
		return fmt.Sprintf("%08X %s", ins.Address, ins.Opcode)
	}
	return fmt.Sprintf("%08X %s % X", ins.Address, ins.Opcode, ins.Operand)
}
