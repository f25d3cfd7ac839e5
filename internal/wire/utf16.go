package wire

import "unicode/utf16"

// decodeUTF16 decodes UTF-16 code units into runes, handling surrogate
// pairs the way the logger's own wide-character strings are encoded.
func decodeUTF16(units []uint16) []rune {
	return utf16.Decode(units)
}
