// Package verification verifies that generated output files are consistent with their input.
package verification

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/retroenv/mestool/internal/dump"
	"github.com/retroenv/mestool/internal/script"
	"github.com/retroenv/mestool/internal/strtable"
	"github.com/retroenv/retrogolib/log"
)

const maxReportedDiffs = 10

var errMismatch = errors.New("verification mismatch")

// RoundTrip verifies that encoding the decoded script data recreates the exact input.
func RoundTrip(logger *log.Logger, data []byte) error {
	s, err := script.Decode(data)
	if err != nil {
		return fmt.Errorf("decoding script: %w", err)
	}
	asm, err := script.Encode(s)
	if err != nil {
		return fmt.Errorf("encoding script: %w", err)
	}

	if err := checkBufferEqual(logger, data, asm.Bytes()); err != nil {
		return fmt.Errorf("round trip: %w", err)
	}
	return nil
}

// Rebuild verifies that the rebuilt script output decodes to the same program as the source
// script. String operands may differ, jumps have to refer to the same instructions.
func Rebuild(logger *log.Logger, source *script.Script, output []byte) error {
	rebuilt, err := script.Decode(output)
	if err != nil {
		return fmt.Errorf("decoding rebuilt script: %w", err)
	}

	if len(source.Instructions) != len(rebuilt.Instructions) {
		return fmt.Errorf("%w: instruction count %d != %d",
			errMismatch, len(source.Instructions), len(rebuilt.Instructions))
	}
	if markers := countTableMarkers(source); markers != len(rebuilt.Table) {
		return fmt.Errorf("%w: table size %d != %d", errMismatch, markers, len(rebuilt.Table))
	}

	var diffs int
	for i, ins := range source.Instructions {
		if err := compareInstruction(source, rebuilt, i); err != nil {
			diffs++
			if diffs <= maxReportedDiffs {
				logger.Error("Instruction mismatch",
					log.Int("index", i),
					log.Hex("address", ins.Address),
					log.Err(err))
			}
		}
	}
	if diffs > 0 {
		return fmt.Errorf("%w: %d instruction mismatches", errMismatch, diffs)
	}
	return nil
}

// countTableMarkers returns the number of table marker instructions, which is the size of the
// rebuilt offset table. The source header may list addresses more than once or without marker.
func countTableMarkers(s *script.Script) int {
	var count int
	for _, ins := range s.Instructions {
		if ins.Opcode == script.Table {
			count++
		}
	}
	return count
}

func compareInstruction(source, rebuilt *script.Script, index int) error {
	expected := source.Instructions[index]
	got := rebuilt.Instructions[index]

	if expected.Opcode != got.Opcode {
		return fmt.Errorf("opcode %s != %s", expected.Opcode, got.Opcode)
	}

	switch {
	case expected.Opcode.IsString():
		return nil

	case expected.Opcode.IsJump():
		return compareJump(source, rebuilt, expected, got)

	default:
		if !bytes.Equal(expected.Operand, got.Operand) {
			return fmt.Errorf("operand % X != % X", expected.Operand, got.Operand)
		}
		return nil
	}
}

func compareJump(source, rebuilt *script.Script, expected, got script.Instruction) error {
	expectedTarget, _ := expected.Target()
	gotTarget, _ := got.Target()

	expectedIndex, ok := source.Index(expectedTarget)
	if !ok {
		return fmt.Errorf("source jump target 0x%08X not found", expectedTarget)
	}
	gotIndex, ok := rebuilt.Index(gotTarget)
	if !ok {
		return fmt.Errorf("rebuilt jump target 0x%08X not found", gotTarget)
	}
	if expectedIndex != gotIndex {
		return fmt.Errorf("jump target instruction %d != %d", expectedIndex, gotIndex)
	}
	return nil
}

// Transcript verifies that reading the written transcript returns the exported entries.
func Transcript(written []byte, exported []strtable.Entry) error {
	entries, err := strtable.Parse(bytes.NewReader(written))
	if err != nil {
		return fmt.Errorf("parsing written transcript: %w", err)
	}

	if len(entries) != len(exported) {
		return fmt.Errorf("%w: entry count %d != %d", errMismatch, len(exported), len(entries))
	}
	for i, entry := range exported {
		if entries[i] != entry {
			return fmt.Errorf("%w: entry %08X text %q != %q", errMismatch, entry.Index, entry.Text, entries[i].Text)
		}
	}
	return nil
}

// Dump verifies that the written dump decodes back into the same listing.
func Dump(logger *log.Logger, written []byte, listing *dump.Listing) error {
	decoded, err := dump.Unmarshal(written)
	if err != nil {
		return err
	}
	encoded, err := dump.Marshal(decoded)
	if err != nil {
		return err
	}
	expected, err := dump.Marshal(listing)
	if err != nil {
		return err
	}

	if err := checkBufferEqual(logger, expected, encoded); err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	return nil
}

func checkBufferEqual(logger *log.Logger, input, output []byte) error {
	if len(input) != len(output) {
		return fmt.Errorf("%w: mismatched lengths, %d != %d", errMismatch, len(input), len(output))
	}

	var diffs uint64
	for i := range input {
		if input[i] == output[i] {
			continue
		}

		diffs++
		if diffs <= maxReportedDiffs {
			logger.Error("Offset mismatch",
				log.Hex("offset", i),
				log.Hex("expected", input[i]),
				log.Hex("got", output[i]))
		}
	}
	if diffs == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d offset mismatches", errMismatch, diffs)
}
