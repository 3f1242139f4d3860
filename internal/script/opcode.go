package script

import "fmt"

// Opcode is the one byte tag at the start of every instruction.
type Opcode byte

// Known opcodes. Opcodes without a distinct name share the name of their group.
const (
	Throw0  Opcode = 0x00
	Throw1  Opcode = 0x01
	Load0   Opcode = 0x02
	Load7   Opcode = 0x09
	StrComp Opcode = 0x0A // compressed string
	Str     Opcode = 0x0B
	Store0  Opcode = 0x0C
	Store7  Opcode = 0x13
	Jz      Opcode = 0x14
	Jmp     Opcode = 0x15
	Op17    Opcode = 0x17
	Op18    Opcode = 0x18
	Table   Opcode = 0x19 // address must be listed in the header offset table
	Jmp1A   Opcode = 0x1A
	Jmp1B   Opcode = 0x1B
	Byte    Opcode = 0x1C
	Push    Opcode = 0x32
	PushStr Opcode = 0x33
	Add     Opcode = 0x34
	Sub     Opcode = 0x35
	Mul     Opcode = 0x36
	Div     Opcode = 0x37
	Mod     Opcode = 0x38
	Random  Opcode = 0x39
	LAnd    Opcode = 0x3A
	LOr     Opcode = 0x3B
	And     Opcode = 0x3C
	Or      Opcode = 0x3D
	Lt      Opcode = 0x3E
	Gt      Opcode = 0x3F
	Le      Opcode = 0x40
	Ge      Opcode = 0x41
	Eq      Opcode = 0x42
	Ne      Opcode = 0x43
)

// Shape describes the operand that follows an opcode.
type Shape int

const (
	ShapeNone    Shape = iota // no operand
	ShapeByte                 // single raw byte
	ShapeDword                // 4 bytes, byte-reversed value
	ShapeCString              // zero terminated byte run, terminator included
)

// OpcodeInfo contains the static details of an opcode.
type OpcodeInfo struct {
	Name  string
	Shape Shape
	Jump  bool // operand is a code address that needs relocation
}

// opcodes maps every known opcode byte to its details, unknown entries are nil.
var opcodes = [256]*OpcodeInfo{}

func init() {
	none := func(name string, from, to Opcode) {
		for op := from; op <= to; op++ {
			opcodes[op] = &OpcodeInfo{Name: name, Shape: ShapeNone}
		}
	}

	none("THROW", Throw0, Throw1)
	none("LOAD", Load0, Load7)
	none("STORE", Store0, Store7)
	none("OP17", Op17, Op17)
	none("OP18", Op18, Op18)

	for op, name := range map[Opcode]string{
		Add: "ADD", Sub: "SUB", Mul: "MUL", Div: "DIV", Mod: "MOD", Random: "RANDOM",
		LAnd: "LAND", LOr: "LOR", And: "AND", Or: "OR",
		Lt: "LT", Gt: "GT", Le: "LE", Ge: "GE", Eq: "EQ", Ne: "NE",
	} {
		none(name, op, op)
	}

	opcodes[StrComp] = &OpcodeInfo{Name: "STRC", Shape: ShapeCString}
	opcodes[Str] = &OpcodeInfo{Name: "STR", Shape: ShapeCString}
	opcodes[PushStr] = &OpcodeInfo{Name: "PUSHSTR", Shape: ShapeCString}

	opcodes[Jz] = &OpcodeInfo{Name: "JZ", Shape: ShapeDword, Jump: true}
	opcodes[Jmp] = &OpcodeInfo{Name: "JMP", Shape: ShapeDword, Jump: true}
	opcodes[Jmp1A] = &OpcodeInfo{Name: "JMP1A", Shape: ShapeDword, Jump: true}
	opcodes[Jmp1B] = &OpcodeInfo{Name: "JMP1B", Shape: ShapeDword, Jump: true}
	opcodes[Table] = &OpcodeInfo{Name: "TABLE", Shape: ShapeDword}
	opcodes[Push] = &OpcodeInfo{Name: "PUSH", Shape: ShapeDword}

	opcodes[Byte] = &OpcodeInfo{Name: "BYTE", Shape: ShapeByte}
}

// Info returns the details of the opcode and whether the opcode is known.
func (op Opcode) Info() (OpcodeInfo, bool) {
	info := opcodes[op]
	if info == nil {
		return OpcodeInfo{}, false
	}
	return *info, true
}

// IsJump returns whether the operand of the opcode is a code address.
func (op Opcode) IsJump() bool {
	info, ok := op.Info()
	return ok && info.Jump
}

// IsString returns whether the operand of the opcode is a string.
func (op Opcode) IsString() bool {
	return op == StrComp || op == Str || op == PushStr
}

// String returns the opcode name, or its hex value if the opcode is unknown.
func (op Opcode) String() string {
	info, ok := op.Info()
	if !ok {
		return fmt.Sprintf("0x%02X", byte(op))
	}
	return info.Name
}

// operandSize returns the fixed operand size of a shape, strings are variable sized.
func (s Shape) operandSize() int {
	switch s {
	case ShapeByte:
		return 1
	case ShapeDword:
		return 4
	default:
		return 0
	}
}
