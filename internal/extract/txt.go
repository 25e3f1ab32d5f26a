package extract

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// txtText decodes plain-text bytes. Valid UTF-8 passes through;
// anything else decodes as Latin-1, which maps every byte and so
// cannot fail.
func txtText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(decoded)
}
