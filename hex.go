package unescape

import (
	"golang.org/x/exp/constraints"
	"unsafe"
)

// parseHex parses a non empty run of hex digits into a value of type T.
// Returns false if any character is not a hex digit or if
// the digits do not fit into T.
func parseHex[T constraints.Unsigned](digits string) (T, bool) {
	var tZero T

	if digits == "" || len(digits) > 2*int(unsafe.Sizeof(tZero)) {
		return tZero, false
	}

	var value T
	for idx := 0; idx < len(digits); idx++ {
		nibble, ok := hexDigit(digits[idx])
		if !ok {
			return tZero, false
		}

		value = value<<4 | T(nibble)
	}

	return value, true
}

func hexDigit(ch byte) (byte, bool) {
	switch {
	case '0' <= ch && ch <= '9':
		return ch - '0', true
	case 'a' <= ch && ch <= 'f':
		return ch - 'a' + 10, true
	case 'A' <= ch && ch <= 'F':
		return ch - 'A' + 10, true
	default:
		return 0, false
	}
}
