package unescape

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrMalformedEscape is returned if a backslash does not start a recognized
// escape sequence.
var ErrMalformedEscape = errors.New("malformed escape sequence")

// SyntaxError describes the malformed escape sequence that stopped decoding.
// It unwraps to ErrMalformedEscape.
type SyntaxError struct {
	// Offset of the backslash in the input, in bytes
	Offset int

	// Sequence holds the malformed sequence including its backslash
	Sequence string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s %q at offset %d", ErrMalformedEscape, e.Sequence, e.Offset)
}

func (e *SyntaxError) Unwrap() error {
	return ErrMalformedEscape
}

// Unescape replaces all escape sequences in input with the characters they denote.
// Characters outside of escape sequences are copied unchanged.
//
// A \u sequence must encode a valid Unicode scalar value on its own. Surrogate halves
// (U+D800 to U+DFFF) are rejected, even if two of them would form a valid pair.
//
// If input contains a malformed escape sequence, Unescape returns an empty string and
// a *SyntaxError.
func Unescape(input string) (string, error) {
	if strings.IndexByte(input, '\\') == -1 {
		return input, nil
	}

	var buf strings.Builder
	buf.Grow(len(input))

	// start of the plain text not yet copied to buf
	start := 0

	for idx := 0; idx < len(input); {
		if input[idx] != '\\' {
			idx++
			continue
		}

		buf.WriteString(input[start:idx])

		size, ok := unescapeSequence(&buf, input[idx:])
		if !ok {
			return "", &SyntaxError{Offset: idx, Sequence: input[idx : idx+size]}
		}

		idx += size
		start = idx
	}

	buf.WriteString(input[start:])

	return buf.String(), nil
}

// UnescapeOrKeep works like Unescape, but returns input unchanged
// if it contains a malformed escape sequence.
func UnescapeOrKeep(input string) string {
	decoded, err := Unescape(input)
	if err != nil {
		return input
	}

	return decoded
}

// unescapeSequence decodes the escape sequence at the start of seq into buf.
// seq must start with a backslash. Returns the size of the sequence in bytes.
// If the sequence is malformed, false is returned together with the size of the
// malformed part.
func unescapeSequence(buf *strings.Builder, seq string) (int, bool) {
	if len(seq) < 2 {
		// backslash at the end of the input
		return len(seq), false
	}

	switch seq[1] {
	case 'n':
		buf.WriteByte('\n')
	case 't':
		buf.WriteByte('\t')
	case 'r':
		buf.WriteByte('\r')
	case '\\':
		buf.WriteByte('\\')
	case '"':
		buf.WriteByte('"')

	case 'u':
		if len(seq) < 6 {
			return len(seq), false
		}

		codeUnit, ok := parseHex[uint16](seq[2:6])
		if !ok || !utf8.ValidRune(rune(codeUnit)) {
			// do not cut a multi byte character in half
			size := 6
			for size < len(seq) && !utf8.RuneStart(seq[size]) {
				size++
			}

			return size, false
		}

		buf.WriteRune(rune(codeUnit))
		return 6, true

	default:
		// report the full introducer, it might be multi byte
		_, size := utf8.DecodeRuneInString(seq[1:])
		return 1 + size, false
	}

	return 2, true
}
