// Package unescape decodes text that carries backslash escape sequences in their
// literal, typed-in form. The two characters `\` and `n` become a real line feed,
// and `\u0048` becomes "H".
//
// The set of recognized sequences is fixed:
//
//	\n       line feed
//	\t       horizontal tab
//	\r       carriage return
//	\\       backslash
//	\"       double quote
//	\uXXXX   code point given as exactly four hex digits
//
// Every backslash in the input must start one of these sequences. Anything else,
// including a backslash at the very end of the input, fails the whole call with an
// error matching [ErrMalformedEscape]. No partial result is ever returned.
//
// [Unescape] decodes a single string. [UnescapeOrKeep] does the same, but keeps the
// input as is if it can not be decoded. [UnescapeInto] walks a go value (e.g. a
// config struct) and decodes every string reachable from it in place.
package unescape
