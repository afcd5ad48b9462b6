package questlock

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// DecodeGameString converts a string from the game's Windows-1252 encoding.
func DecodeGameString(b []byte) string {
	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

// EncodeGameString converts s to Windows-1252. Characters with no
// equivalent are replaced.
func EncodeGameString(s string) []byte {
	b, err := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder()).Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return b
}
