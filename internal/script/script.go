// Package script decodes and encodes GSIWin engine bytecode scripts.
//
// A script starts with a header that lists the code addresses of all table marker instructions,
// followed by the code section. Instruction addresses are relative to the start of the code
// section. Encoding recomputes all addresses, relocates jump operands and rebuilds the header.
package script

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/retroenv/retrogolib/set"
)

var (
	// ErrUnknownOpcode is returned for opcode bytes outside of the known instruction set.
	ErrUnknownOpcode = errors.New("unknown opcode")
	// ErrAddressNotInTable is returned when a table marker address is missing in the header table.
	ErrAddressNotInTable = errors.New("address not found in table")
	// ErrTruncated is returned when the data ends inside the header or an operand.
	ErrTruncated = errors.New("unexpected end of data")
	// ErrJumpTargetNotFound is returned when a jump operand does not point to an instruction.
	ErrJumpTargetNotFound = errors.New("jump target not found")
)

const headerEntrySize = 4

// Script is a decoded script. Instructions are stored in decode order and referenced by index.
type Script struct {
	Table        []uint32 // header offset table as read from the file
	Instructions []Instruction

	addressIndex map[uint32]int // original address to instruction index
}

// Decode decodes a complete script file.
func Decode(data []byte) (*Script, error) {
	table, codeBase, err := readTable(data)
	if err != nil {
		return nil, err
	}

	markers := set.New[uint32]()
	for _, address := range table {
		markers.Add(address)
	}

	s := &Script{
		Table:        table,
		addressIndex: map[uint32]int{},
	}

	code := data[codeBase:]
	for pos := 0; pos < len(code); {
		address := uint32(pos)
		op := Opcode(code[pos])
		pos++

		info, ok := op.Info()
		if !ok {
			return nil, fmt.Errorf("%w %02X at address 0x%08X", ErrUnknownOpcode, byte(op), address)
		}

		operand, n, err := readOperand(code[pos:], info.Shape)
		if err != nil {
			return nil, fmt.Errorf("reading operand of %s at address 0x%08X: %w", op, address, err)
		}
		pos += n

		if op == Table && !markers.Contains(address) {
			return nil, fmt.Errorf("%w: 0x%08X", ErrAddressNotInTable, address)
		}

		s.addressIndex[address] = len(s.Instructions)
		s.Instructions = append(s.Instructions, Instruction{
			Address: address,
			Opcode:  op,
			Operand: operand,
		})
	}

	return s, nil
}

// readTable reads the header offset table and returns it with the start offset of the code section.
func readTable(data []byte) ([]uint32, int, error) {
	if len(data) < headerEntrySize {
		return nil, 0, fmt.Errorf("reading table size: %w", ErrTruncated)
	}

	count := binary.LittleEndian.Uint32(data)
	if uint64(count) > uint64(len(data)/headerEntrySize-1) {
		return nil, 0, fmt.Errorf("reading table with %d entries: %w", count, ErrTruncated)
	}

	table := make([]uint32, count)
	pos := headerEntrySize
	for i := range table {
		table[i] = binary.LittleEndian.Uint32(data[pos:])
		pos += headerEntrySize
	}
	return table, pos, nil
}

// readOperand reads the operand of the given shape from the start of buf and returns it
// together with the number of bytes consumed.
func readOperand(buf []byte, shape Shape) ([]byte, int, error) {
	switch shape {
	case ShapeNone:
		return nil, 0, nil

	case ShapeByte, ShapeDword:
		size := shape.operandSize()
		if len(buf) < size {
			return nil, 0, ErrTruncated
		}
		operand := make([]byte, size)
		copy(operand, buf)
		return operand, size, nil

	case ShapeCString:
		for i, b := range buf {
			if b == 0 {
				operand := make([]byte, i+1)
				copy(operand, buf)
				return operand, i + 1, nil
			}
		}
		return nil, 0, fmt.Errorf("unterminated string: %w", ErrTruncated)

	default:
		return nil, 0, fmt.Errorf("unsupported operand shape %d", shape)
	}
}

// Index returns the index of the instruction that was decoded at the given address.
func (s *Script) Index(address uint32) (int, bool) {
	i, ok := s.addressIndex[address]
	return i, ok
}

// SetOperand replaces the operand of the string instruction at the given index.
// The operand has to include the zero terminator.
func (s *Script) SetOperand(index int, operand []byte) error {
	if index < 0 || index >= len(s.Instructions) {
		return fmt.Errorf("instruction index %d out of range", index)
	}
	ins := s.Instructions[index]
	if !ins.Opcode.IsString() {
		return fmt.Errorf("instruction %d is not a string instruction but %s", index, ins.Opcode)
	}
	if len(operand) == 0 || operand[len(operand)-1] != 0 {
		return fmt.Errorf("operand of instruction %d is not zero terminated", index)
	}

	ins.Operand = operand
	s.Instructions[index] = ins
	return nil
}
