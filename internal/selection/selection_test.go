package selection

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

const article = `The river bank was steep.

She walked to the bank to deposit a check. It was closed!
The teller waved.

Unrelated closing paragraph.`

func TestValidate(t *testing.T) {
	if w, err := Validate("  bank \n"); err != nil || w != "bank" {
		t.Errorf("expected trimmed word, got %q, %v", w, err)
	}
	if _, err := Validate("   "); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
	if _, err := Validate(strings.Repeat("a", MaxWordLength)); err != nil {
		t.Errorf("exactly the limit should pass, got %v", err)
	}
	if _, err := Validate(strings.Repeat("字", MaxWordLength+1)); !errors.Is(err, ErrTooLong) {
		t.Errorf("expected ErrTooLong, got %v", err)
	}
}

func TestExtract_Paragraph(t *testing.T) {
	got := Extract(article, "deposit", "paragraph", 500)
	want := "She walked to the bank to deposit a check. It was closed! The teller waved."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtract_ParagraphFirstMatch(t *testing.T) {
	got := Extract(article, "bank", "paragraph", 500)
	if got != "The river bank was steep." {
		t.Errorf("expected first paragraph containing the word, got %q", got)
	}
}

func TestExtract_ParagraphNotFoundUsesWholeText(t *testing.T) {
	got := Extract("one\n\ntwo", "three", "paragraph", 500)
	if got != "one two" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_Sentence(t *testing.T) {
	tests := []struct {
		word, want string
	}{
		{"deposit", "She walked to the bank to deposit a check."},
		{"closed", "It was closed!"},
		{"teller", "The teller waved."},
	}
	for _, tt := range tests {
		if got := Extract(article, tt.word, "sentence", 500); got != tt.want {
			t.Errorf("Extract(%q): got %q, want %q", tt.word, got, tt.want)
		}
	}
}

func TestExtract_SentenceKeepsDecimals(t *testing.T) {
	got := Extract("Pi is 3.14 roughly. Next one.", "Pi", "sentence", 500)
	if got != "Pi is 3.14 roughly." {
		t.Errorf("got %q", got)
	}
}

func TestExtract_SentenceCJK(t *testing.T) {
	got := Extract("今天天气很好。我去银行存钱。然后回家。", "银行", "sentence", 500)
	if got != "我去银行存钱。" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_FixedWindow(t *testing.T) {
	text := strings.Repeat("a ", 100) + "target" + strings.Repeat(" b", 100)
	got := Extract(text, "target", "fixed", 40)
	if utf8.RuneCountInString(got) > 40 {
		t.Errorf("window too long: %d", utf8.RuneCountInString(got))
	}
	if !strings.Contains(got, "target") {
		t.Errorf("window should contain the word, got %q", got)
	}
}

func TestExtract_FixedShortText(t *testing.T) {
	if got := Extract("  short   text ", "text", "fixed", 500); got != "short text" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_FixedWordAtEnd(t *testing.T) {
	text := strings.Repeat("x", 50) + "end"
	got := Extract(text, "end", "fixed", 10)
	if got != "xxxxxxxend" {
		t.Errorf("got %q", got)
	}
}
