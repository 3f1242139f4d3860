// Package codec converts between script string operands and text.
//
// Scripts store text in two forms. Most string opcodes hold a plain zero terminated byte run in
// the source encoding. One opcode holds a compressed form where a single byte can stand for a
// complete double-byte character. Rebuilt scripts always use the plain form in the target
// encoding.
package codec

import (
	"errors"
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// ErrUnencodable is returned when a text contains characters that the target encoding can not represent.
var ErrUnencodable = errors.New("text not representable in target encoding")

// compressedBase is subtracted from a packed byte to restore the double-byte character.
const compressedBase = 0x7D62

// Codec decodes operands using the source encoding and encodes text using the target encoding.
type Codec struct {
	source encoding.Encoding
	target encoding.Encoding
	strict bool // fail instead of replacing unsupported characters
}

// Option configures a codec.
type Option func(*Codec)

// WithStrictEncoding makes Encode fail for characters that the target encoding can not represent.
func WithStrictEncoding() Option {
	return func(c *Codec) {
		c.strict = true
	}
}

// New returns a codec for the given source and target encodings.
func New(source, target encoding.Encoding, opts ...Option) *Codec {
	c := &Codec{
		source: source,
		target: target,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Default returns the codec used by the engine: Shift_JIS scripts rebuilt as GBK.
func Default() *Codec {
	return New(japanese.ShiftJIS, simplifiedchinese.GBK)
}

// FromNames returns a codec for the given encoding names, for example "shift_jis" or "gbk".
func FromNames(source, target string, opts ...Option) (*Codec, error) {
	src, err := htmlindex.Get(source)
	if err != nil {
		return nil, fmt.Errorf("unsupported source encoding '%s': %w", source, err)
	}
	dst, err := htmlindex.Get(target)
	if err != nil {
		return nil, fmt.Errorf("unsupported target encoding '%s': %w", target, err)
	}
	return New(src, dst, opts...), nil
}

// DecodePlain decodes the bytes up to the first zero byte or the end of the buffer.
func (c *Codec) DecodePlain(buf []byte) (string, error) {
	return c.decode(Plain(buf))
}

// DecodeCompressed unpacks a compressed operand and decodes the result.
func (c *Codec) DecodeCompressed(buf []byte) (string, error) {
	return c.decode(Unpack(buf))
}

// Encode converts text to the target encoding and appends the zero terminator.
// Characters that the target encoding can not represent are replaced by its substitute
// character, the returned flag reports whether that happened. A strict codec returns
// ErrUnencodable instead.
func (c *Codec) Encode(text string) ([]byte, bool, error) {
	b, err := c.target.NewEncoder().Bytes([]byte(text))
	if err == nil {
		return append(b, 0), false, nil
	}
	if c.strict {
		return nil, false, fmt.Errorf("%w: %w", ErrUnencodable, err)
	}

	b, err = encoding.ReplaceUnsupported(c.target.NewEncoder()).Bytes([]byte(text))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrUnencodable, err)
	}
	return append(b, 0), true, nil
}

func (c *Codec) decode(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	s, err := c.source.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decoding text: %w", err)
	}
	return string(s), nil
}

// Plain returns the bytes of buf before the first zero byte.
func Plain(buf []byte) []byte {
	for i, b := range buf {
		if b == 0 {
			return buf[:i]
		}
	}
	return buf
}

// Unpack expands a compressed operand into source encoded bytes.
// Double-byte characters are copied unchanged, every other byte is a packed character.
func Unpack(buf []byte) []byte {
	out := make([]byte, 0, 2*len(buf))

	for i := 0; i < len(buf); i++ {
		c := buf[i]
		if c == 0 {
			break
		}

		if isDoubleByteLead(c) {
			out = append(out, c)
			i++
			if i < len(buf) {
				out = append(out, buf[i])
			}
			continue
		}

		v := uint16(c) - compressedBase
		out = append(out, byte(v>>8), byte(v))
	}

	return out
}

// isDoubleByteLead reports whether c starts an already encoded double-byte character.
// The second condition is evaluated on the widened byte value like the engine tools do and
// never matches for a byte.
func isDoubleByteLead(c byte) bool {
	return (c >= 0x81 && c <= 0xFE) || int(c)+0x20 <= 0x0F
}
