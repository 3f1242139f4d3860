package strtable

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/retroenv/mestool/internal/codec"
	"github.com/retroenv/mestool/internal/script"
)

// Transcript line markers. Only lines starting with EditMarker are read back.
const (
	ReferenceMarker = "◇"
	EditMarker      = "◆"
)

const maxLineSize = 1 << 20

var (
	// ErrBadFormat is returned for an editable transcript line that can not be parsed.
	ErrBadFormat = errors.New("bad format")
	// ErrIndexNotFound is returned for a transcript index that does not refer to a string instruction.
	ErrIndexNotFound = errors.New("index is not contained in the script")
)

var editLine = regexp.MustCompile(`^` + EditMarker + `([0-9A-Fa-f]+)` + EditMarker + `(.*)$`)

var (
	escaper   = strings.NewReplacer("\r", `\r`, "\n", `\n`, "\t", `\t`)
	unescaper = strings.NewReplacer(`\r`, "\r", `\n`, "\n", `\t`, "\t", `\0`, "\x00", `\x1C`, "\x1c")
)

// Escape replaces line structuring characters with their escape sequences.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Unescape reverts Escape. It also accepts the \0 and \x1C sequences.
func Unescape(s string) string {
	return unescaper.Replace(s)
}

// Export writes the entries as transcript. Each entry is written as a reference line, an
// editable line and an empty line. Unless exportAll is set, non narrative entries are skipped.
// It returns the number of written entries.
func Export(w io.Writer, entries []Entry, exportAll bool) (int, error) {
	bw := bufio.NewWriter(w)

	var written int
	for _, entry := range entries {
		if !exportAll && !IsNarrative(entry.Text) {
			continue
		}

		text := Escape(entry.Text)
		if _, err := fmt.Fprintf(bw, "%s%08X%s%s\n%s%08X%s%s\n\n",
			ReferenceMarker, entry.Index, ReferenceMarker, text,
			EditMarker, entry.Index, EditMarker, text); err != nil {
			return written, fmt.Errorf("writing entry %08X: %w", entry.Index, err)
		}
		written++
	}

	if err := bw.Flush(); err != nil {
		return written, fmt.Errorf("flushing transcript: %w", err)
	}
	return written, nil
}

// Parse reads the editable lines of a transcript and returns them in file order.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var entries []Entry
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if !strings.HasPrefix(line, EditMarker) {
			continue
		}

		m := editLine.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("%w at line %d", ErrBadFormat, lineNo)
		}
		index, err := strconv.ParseUint(m[1], 16, 31)
		if err != nil {
			return nil, fmt.Errorf("%w at line %d: invalid index '%s'", ErrBadFormat, lineNo, m[1])
		}

		entries = append(entries, Entry{
			Index: int(index),
			Text:  Unescape(m[2]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}

	return entries, nil
}

// ImportResult describes an applied transcript.
type ImportResult struct {
	Applied  int   // number of applied transcript lines
	Replaced []int // instruction indexes of strings with replaced unsupported characters
}

// Import applies the transcript to the script. All strings of the script are re-encoded with the
// target encoding of the codec, strings that are not part of the transcript keep their text.
// The script is only modified if the complete transcript could be applied.
func Import(r io.Reader, s *script.Script, c *codec.Codec) (ImportResult, error) {
	var result ImportResult

	translated, err := Parse(r)
	if err != nil {
		return result, err
	}

	entries, err := Extract(s, c)
	if err != nil {
		return result, err
	}

	positions := make(map[int]int, len(entries))
	for i, entry := range entries {
		positions[entry.Index] = i
	}

	for _, tr := range translated {
		pos, ok := positions[tr.Index]
		if !ok {
			return result, fmt.Errorf("%w: %08X", ErrIndexNotFound, tr.Index)
		}
		entries[pos].Text = tr.Text
	}

	operands := make([][]byte, len(entries))
	var replaced []int
	for i, entry := range entries {
		operand, lossy, err := c.Encode(entry.Text)
		if err != nil {
			return result, fmt.Errorf("encoding string %08X: %w", entry.Index, err)
		}
		if lossy {
			replaced = append(replaced, entry.Index)
		}
		operands[i] = operand
	}

	for i, entry := range entries {
		if err := s.SetOperand(entry.Index, operands[i]); err != nil {
			return result, fmt.Errorf("updating string %08X: %w", entry.Index, err)
		}
	}

	result.Applied = len(translated)
	result.Replaced = replaced
	return result, nil
}
