package script

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Assembly is the result of encoding a script.
type Assembly struct {
	Table     []uint32          // rebuilt header offset table
	Code      []byte            // code section with relocated jump operands
	Addresses []uint32          // new address of every instruction, by instruction index
	Remap     map[uint32]uint32 // original address to new address
}

// Encode lays out all instructions, relocates the jump operands and rebuilds the offset table.
func Encode(s *Script) (*Assembly, error) {
	asm := &Assembly{
		Table:     []uint32{},
		Addresses: make([]uint32, len(s.Instructions)),
		Remap:     make(map[uint32]uint32, len(s.Instructions)),
	}

	var buf bytes.Buffer
	for i, ins := range s.Instructions {
		address := uint32(buf.Len())
		asm.Addresses[i] = address
		asm.Remap[ins.Address] = address

		buf.WriteByte(byte(ins.Opcode))
		buf.Write(ins.Operand)
	}
	asm.Code = buf.Bytes()

	for i, ins := range s.Instructions {
		address := asm.Addresses[i]

		switch {
		case ins.Opcode == Table:
			asm.Table = append(asm.Table, address)

		case ins.Opcode.IsJump():
			target, ok := ins.Target()
			if !ok {
				return nil, fmt.Errorf("invalid operand of %s at address 0x%08X", ins.Opcode, ins.Address)
			}
			newTarget, ok := asm.Remap[target]
			if !ok {
				return nil, fmt.Errorf("%w: %s at address 0x%08X refers to 0x%08X",
					ErrJumpTargetNotFound, ins.Opcode, ins.Address, target)
			}
			binary.LittleEndian.PutUint32(asm.Code[address+1:], Reverse32(newTarget))
		}
	}

	return asm, nil
}

// Bytes returns the complete script file.
func (a *Assembly) Bytes() []byte {
	out := make([]byte, headerEntrySize*(len(a.Table)+1), headerEntrySize*(len(a.Table)+1)+len(a.Code))
	binary.LittleEndian.PutUint32(out, uint32(len(a.Table)))
	for i, address := range a.Table {
		binary.LittleEndian.PutUint32(out[headerEntrySize*(i+1):], address)
	}
	return append(out, a.Code...)
}
