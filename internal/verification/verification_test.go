package verification

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/retroenv/mestool/internal/codec"
	"github.com/retroenv/mestool/internal/dump"
	"github.com/retroenv/mestool/internal/script"
	"github.com/retroenv/mestool/internal/strtable"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

// scriptData returns a script with the following code:
//
//	00000000 TABLE
//	00000005 STR "a"
//	00000008 JMP 00000000
//	0000000D PUSH 00000007
func scriptData() []byte {
	data := []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	data = append(data, byte(script.Table), 0x00, 0x00, 0x00, 0x00)
	data = append(data, byte(script.Str), 'a', 0x00)
	data = append(data, byte(script.Jmp))
	data = binary.LittleEndian.AppendUint32(data, script.Reverse32(0))
	data = append(data, byte(script.Push), 0x07, 0x00, 0x00, 0x00)
	return data
}

func TestRoundTrip(t *testing.T) {
	logger := log.NewTestLogger(t)

	assert.NoError(t, RoundTrip(logger, scriptData()))

	err := RoundTrip(logger, []byte{0x00, 0x00, 0x00, 0x00, 0x16})
	assert.True(t, errors.Is(err, script.ErrUnknownOpcode))
}

func TestCheckBufferEqual(t *testing.T) {
	logger := log.NewTestLogger(t)

	assert.NoError(t, checkBufferEqual(logger, []byte{1, 2, 3}, []byte{1, 2, 3}))

	err := checkBufferEqual(logger, []byte{1, 2, 3}, []byte{1, 2})
	assert.ErrorContains(t, err, "mismatched lengths, 3 != 2")

	err = checkBufferEqual(logger, []byte{1, 2, 3}, []byte{0, 2, 0})
	assert.True(t, errors.Is(err, errMismatch))
	assert.ErrorContains(t, err, "2 offset mismatches")
}

func TestRebuild(t *testing.T) {
	logger := log.NewTestLogger(t)

	source, err := script.Decode(scriptData())
	assert.NoError(t, err)

	rebuilt, err := script.Decode(scriptData())
	assert.NoError(t, err)
	assert.NoError(t, rebuilt.SetOperand(1, []byte("longer text\x00")))
	asm, err := script.Encode(rebuilt)
	assert.NoError(t, err)

	assert.NoError(t, Rebuild(logger, source, asm.Bytes()))
}

func TestRebuildIrregularHeaderTable(t *testing.T) {
	logger := log.NewTestLogger(t)

	tests := []struct {
		name   string
		header []byte
	}{
		{"duplicate address", []byte{0x02, 0, 0, 0, 0x00, 0, 0, 0, 0x00, 0, 0, 0}},
		{"address without marker", []byte{0x02, 0, 0, 0, 0x00, 0, 0, 0, 0x05, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append(append([]byte{}, tt.header...), scriptData()[8:]...)
			source, err := script.Decode(data)
			assert.NoError(t, err)
			assert.Len(t, source.Table, 2)

			asm, err := script.Encode(source)
			assert.NoError(t, err)
			assert.Len(t, asm.Table, 1)

			assert.NoError(t, Rebuild(logger, source, asm.Bytes()))
		})
	}
}

func TestRebuildMismatch(t *testing.T) {
	logger := log.NewTestLogger(t)

	source, err := script.Decode(scriptData())
	assert.NoError(t, err)

	tests := []struct {
		name   string
		modify func(data []byte) []byte
		errMsg string
	}{
		{
			name:   "missing instruction",
			modify: func(data []byte) []byte { return data[:len(data)-5] },
			errMsg: "instruction count 4 != 3",
		},
		{
			name: "changed constant",
			modify: func(data []byte) []byte {
				data[len(data)-4] = 0x08
				return data
			},
			errMsg: "1 instruction mismatches",
		},
		{
			name: "changed opcode",
			modify: func(data []byte) []byte {
				data[len(data)-5] = byte(script.Jz)
				return data
			},
			errMsg: "1 instruction mismatches",
		},
		{
			name: "changed jump target",
			modify: func(data []byte) []byte {
				copy(data[8+9:], binary.LittleEndian.AppendUint32(nil, script.Reverse32(5)))
				return data
			},
			errMsg: "1 instruction mismatches",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Rebuild(logger, source, tt.modify(scriptData()))
			assert.True(t, errors.Is(err, errMismatch))
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestTranscript(t *testing.T) {
	entries := []strtable.Entry{
		{Index: 1, Text: "あ\nい"},
		{Index: 4, Text: ""},
	}

	var buf bytes.Buffer
	_, err := strtable.Export(&buf, entries, true)
	assert.NoError(t, err)

	assert.NoError(t, Transcript(buf.Bytes(), entries))

	err = Transcript(buf.Bytes(), entries[:1])
	assert.True(t, errors.Is(err, errMismatch))

	lossy := []strtable.Entry{{Index: 2, Text: `a\nb`}}
	buf.Reset()
	_, err = strtable.Export(&buf, lossy, true)
	assert.NoError(t, err)
	err = Transcript(buf.Bytes(), lossy)
	assert.ErrorContains(t, err, "entry 00000002")
}

func TestDump(t *testing.T) {
	logger := log.NewTestLogger(t)

	s, err := script.Decode(scriptData())
	assert.NoError(t, err)
	listing, err := dump.Build(s, codec.Default())
	assert.NoError(t, err)
	data, err := dump.Marshal(listing)
	assert.NoError(t, err)

	assert.NoError(t, Dump(logger, data, listing))

	assert.Error(t, Dump(logger, data[:len(data)-1], listing))

	listing.Instructions[0].Name = "OTHER"
	assert.Error(t, Dump(logger, data, listing))
}
