// Package selection validates a user's selection and extracts the text
// around it that is sent along as context.
package selection

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/arin/wordpeek/internal/config"
)

// MaxWordLength is the longest selection that will be looked up.
const MaxWordLength = 100

var (
	ErrEmpty   = errors.New("nothing selected")
	ErrTooLong = errors.New("selection is longer than 100 characters")
)

// Validate trims the selection and applies the lookup policy.
func Validate(word string) (string, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return "", ErrEmpty
	}
	if utf8.RuneCountInString(word) > MaxWordLength {
		return "", ErrTooLong
	}
	return word, nil
}

// Extract narrows text down to the part surrounding word according to
// mode: the enclosing paragraph, the enclosing sentence, or a fixed window
// of length characters centered on the word. Whitespace is collapsed. If
// the word is not found, the whole text is used.
func Extract(text, word, mode string, length int) string {
	switch mode {
	case config.RangeSentence:
		return collapse(sentenceAround(collapse(text), word))
	case config.RangeFixed:
		return window(collapse(text), word, length)
	default:
		return collapse(paragraphAround(text, word))
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// paragraphAround returns the first blank-line separated block containing word.
func paragraphAround(text, word string) string {
	var block []string
	flush := func() string {
		p := strings.Join(block, "\n")
		block = block[:0]
		return p
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			if p := flush(); strings.Contains(p, word) {
				return p
			}
			continue
		}
		block = append(block, line)
	}
	if p := flush(); strings.Contains(p, word) {
		return p
	}
	return text
}

// endsSentence reports whether r at byte offset i in s closes a sentence.
// A period inside a token ("3.14", "e.g") does not.
func endsSentence(s string, i int, r rune) bool {
	switch r {
	case '!', '?', '。', '！', '？', '…':
		return true
	case '.':
		next := i + 1
		if next >= len(s) {
			return true
		}
		n, _ := utf8.DecodeRuneInString(s[next:])
		return unicode.IsSpace(n)
	}
	return false
}

// sentenceAround returns the sentence containing the first occurrence of word.
func sentenceAround(text, word string) string {
	idx := strings.Index(text, word)
	if idx < 0 || word == "" {
		return text
	}

	start := 0
	before := text[:idx]
	for i, r := range before {
		if endsSentence(before, i, r) {
			start = i + utf8.RuneLen(r)
		}
	}

	end := len(text)
	rest := text[idx+len(word):]
	for i, r := range rest {
		if endsSentence(rest, i, r) {
			end = idx + len(word) + i + utf8.RuneLen(r)
			break
		}
	}
	return strings.TrimSpace(text[start:end])
}

// window returns up to length runes of text centered on word.
func window(text, word string, length int) string {
	runes := []rune(text)
	if length <= 0 || len(runes) <= length {
		return text
	}

	center := 0
	if idx := strings.Index(text, word); idx >= 0 && word != "" {
		center = utf8.RuneCountInString(text[:idx]) + utf8.RuneCountInString(word)/2
	}

	start := center - length/2
	if start < 0 {
		start = 0
	}
	end := start + length
	if end > len(runes) {
		end = len(runes)
		start = end - length
	}
	return strings.TrimSpace(string(runes[start:end]))
}
