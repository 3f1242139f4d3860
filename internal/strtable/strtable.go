// Package strtable extracts the strings of a script into a translation transcript and imports
// the edited transcript back into the script.
package strtable

import (
	"fmt"
	"unicode/utf8"

	"github.com/retroenv/mestool/internal/codec"
	"github.com/retroenv/mestool/internal/script"
)

// Entry is a string of the script together with the index of the instruction that contains it.
type Entry struct {
	Index int
	Text  string
}

// Extract returns all strings of the script in instruction order.
func Extract(s *script.Script, c *codec.Codec) ([]Entry, error) {
	var entries []Entry

	for i, ins := range s.Instructions {
		text, ok, err := DecodeOperand(ins, c)
		if err != nil {
			return nil, fmt.Errorf("decoding string of instruction %08X: %w", i, err)
		}
		if !ok {
			continue
		}

		entries = append(entries, Entry{Index: i, Text: text})
	}

	return entries, nil
}

// DecodeOperand decodes the string operand of an instruction. It returns false for instructions
// without string operand.
func DecodeOperand(ins script.Instruction, c *codec.Codec) (string, bool, error) {
	var (
		text string
		err  error
	)

	switch ins.Opcode {
	case script.StrComp:
		text, err = c.DecodeCompressed(ins.Operand)
	case script.Str, script.PushStr:
		text, err = c.DecodePlain(ins.Operand)
	default:
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// IsNarrative returns whether the text is dialogue rather than a resource name or similar.
// Texts starting with a single byte character other than a line structuring character are not.
func IsNarrative(text string) bool {
	if text == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text)
	return r >= 0x81 || r == '\n' || r == '\r' || r == '\t'
}
