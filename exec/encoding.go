package exec

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

var (
	utf16leBOM = []byte{0xFF, 0xFE}
	utf16beBOM = []byte{0xFE, 0xFF}
)

// decodeBytesSmart converts captured output to a string. Valid UTF-8 passes
// through unchanged; UTF-16 with a BOM is re-encoded; anything else is
// decoded lossily with replacement runes.
func decodeBytesSmart(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	if bytes.HasPrefix(b, utf16leBOM) || bytes.HasPrefix(b, utf16beBOM) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		if decoded, err := dec.Bytes(b); err == nil {
			return string(decoded)
		}
	}
	return strings.ToValidUTF8(string(b), "�")
}
