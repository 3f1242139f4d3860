// Package dump creates a CBOR encoded listing of all decoded instructions of a script.
package dump

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/retroenv/mestool/internal/codec"
	"github.com/retroenv/mestool/internal/script"
	"github.com/retroenv/mestool/internal/strtable"
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dump: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Listing is the dump of a complete script.
type Listing struct {
	Table        []uint32 `cbor:"table"`
	Instructions []Entry  `cbor:"instructions"`
}

// Entry is a single dumped instruction.
type Entry struct {
	Index   int     `cbor:"index"`
	Address uint32  `cbor:"address"`
	Opcode  uint8   `cbor:"opcode"`
	Name    string  `cbor:"name"`
	Operand []byte  `cbor:"operand,omitempty"`
	Jump    *uint32 `cbor:"jump,omitempty"`   // jump target address
	Target  *int    `cbor:"target,omitempty"` // instruction index of the jump target
	Text    *string `cbor:"text,omitempty"`   // decoded string operand
}

// Build creates the listing of a script. String operands are decoded with the source encoding
// of the codec.
func Build(s *script.Script, c *codec.Codec) (*Listing, error) {
	l := &Listing{
		Table:        append([]uint32{}, s.Table...),
		Instructions: make([]Entry, 0, len(s.Instructions)),
	}

	for i, ins := range s.Instructions {
		entry := Entry{
			Index:   i,
			Address: ins.Address,
			Opcode:  uint8(ins.Opcode),
			Name:    ins.Opcode.String(),
		}
		if len(ins.Operand) > 0 {
			entry.Operand = append([]byte{}, ins.Operand...)
		}

		if address, ok := ins.Target(); ok {
			entry.Jump = &address
			if index, ok := s.Index(address); ok {
				entry.Target = &index
			}
		}

		text, ok, err := strtable.DecodeOperand(ins, c)
		if err != nil {
			return nil, fmt.Errorf("decoding string of instruction %08X: %w", i, err)
		}
		if ok {
			entry.Text = &text
		}

		l.Instructions = append(l.Instructions, entry)
	}

	return l, nil
}

// Marshal serializes a listing to canonical CBOR.
func Marshal(l *Listing) ([]byte, error) {
	data, err := encMode.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("dump: marshal listing: %w", err)
	}
	return data, nil
}

// Unmarshal deserializes a listing from CBOR.
func Unmarshal(data []byte) (*Listing, error) {
	var l Listing
	if err := cbor.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("dump: unmarshal listing: %w", err)
	}
	return &l, nil
}

// Write serializes a listing to the writer.
func Write(w io.Writer, l *Listing) error {
	data, err := Marshal(l)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("dump: writing listing: %w", err)
	}
	return nil
}
