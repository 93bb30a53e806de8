package ai

import (
	"strings"
	"unicode/utf8"
)

// utf8Stream decodes a byte stream into text, holding back a multi-byte
// rune that was split across reads until its remaining bytes arrive.
type utf8Stream struct {
	pending []byte
}

func (u *utf8Stream) decode(p []byte) string {
	data := append(u.pending, p...)
	cut := completePrefix(data)
	u.pending = append([]byte(nil), data[cut:]...)
	return string(data[:cut])
}

// flush returns whatever is still held back, replacing invalid bytes.
func (u *utf8Stream) flush() string {
	s := string(u.pending)
	u.pending = nil
	return strings.ToValidUTF8(s, "\uFFFD")
}

// completePrefix returns the length of b up to, but not including, a
// trailing incomplete rune.
func completePrefix(b []byte) int {
	for i := len(b) - 1; i >= 0 && i > len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return len(b)
		}
		return i
	}
	return len(b)
}
