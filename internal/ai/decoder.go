package ai

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// Mode is how the decoder has classified the upstream body.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeSSE
	ModeWhole
)

func (m Mode) String() string {
	switch m {
	case ModeSSE:
		return "sse"
	case ModeWhole:
		return "whole"
	default:
		return "unknown"
	}
}

const (
	ssePrefix    = "data:"
	doneSentinel = "[DONE]"

	// DefaultProbeThreshold is how many characters may arrive without an SSE
	// field before the body is treated as a single document.
	DefaultProbeThreshold = 20
)

// sseFieldPrefixes mark the start of an event stream. Only data lines carry
// content; the others are skipped once in SSE mode.
var sseFieldPrefixes = []string{ssePrefix, "event:", "id:", "retry:", ":"}

// Decoder turns upstream response text into events. Servers that honor the
// stream flag send SSE lines; some ignore it and send one JSON document, so
// the decoder sniffs the first bytes to pick a mode.
//
// A Decoder is owned by one session and is not safe for concurrent use.
type Decoder struct {
	mode    Mode
	buf     strings.Builder
	probe   int
	skipped int
	closed  bool
}

// NewDecoder returns a decoder using DefaultProbeThreshold.
func NewDecoder() *Decoder {
	return NewDecoderWithProbe(DefaultProbeThreshold)
}

// NewDecoderWithProbe returns a decoder with a custom probe threshold.
func NewDecoderWithProbe(threshold int) *Decoder {
	if threshold <= 0 {
		threshold = DefaultProbeThreshold
	}
	return &Decoder{probe: threshold}
}

// Mode returns the current classification.
func (d *Decoder) Mode() Mode { return d.mode }

// Skipped returns how many SSE data lines were dropped because they were not
// JSON or did not carry a content delta.
func (d *Decoder) Skipped() int { return d.skipped }

// Feed appends text and returns any events that became complete.
func (d *Decoder) Feed(text string) []Event {
	if d.closed || text == "" {
		return nil
	}
	d.buf.WriteString(text)

	if d.mode == ModeUnknown {
		d.mode = d.sniff(false)
	}
	if d.mode == ModeSSE {
		return d.drainLines()
	}
	return nil
}

// Finish flushes whatever is buffered once the upstream body has ended. It
// never emits Done; the caller owns the terminal event. Calling Finish more
// than once returns nil.
func (d *Decoder) Finish() []Event {
	if d.closed {
		return nil
	}
	d.closed = true

	if d.mode == ModeUnknown {
		d.mode = d.sniff(true)
	}

	switch d.mode {
	case ModeSSE:
		events := d.drainLines()
		if ev, ok := d.parseLine(d.buf.String()); ok {
			events = append(events, ev)
		}
		d.buf.Reset()
		return events
	default:
		return d.finishWhole()
	}
}

// sniff classifies the buffered text. At end of stream anything that is not
// an event stream is treated as a whole document.
func (d *Decoder) sniff(final bool) Mode {
	trimmed := strings.TrimLeftFunc(d.buf.String(), unicode.IsSpace)
	for _, p := range sseFieldPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return ModeSSE
		}
	}
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return ModeWhole
	}
	if final || utf8.RuneCountInString(trimmed) > d.probe {
		return ModeWhole
	}
	return ModeUnknown
}

// drainLines consumes every complete line and keeps the trailing partial
// line buffered.
func (d *Decoder) drainLines() []Event {
	data := d.buf.String()
	idx := strings.LastIndexByte(data, '\n')
	if idx < 0 {
		return nil
	}
	complete, rest := data[:idx], data[idx+1:]
	d.buf.Reset()
	d.buf.WriteString(rest)

	var events []Event
	for _, line := range strings.Split(complete, "\n") {
		if ev, ok := d.parseLine(line); ok {
			events = append(events, ev)
		}
	}
	return events
}

func (d *Decoder) parseLine(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, ssePrefix) {
		return Event{}, false
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, ssePrefix))
	if payload == doneSentinel {
		return Event{}, false
	}
	if !gjson.Valid(payload) {
		d.skipped++
		return Event{}, false
	}
	content, ok := deltaContent(payload)
	if !ok {
		d.skipped++
		return Event{}, false
	}
	if content == "" {
		return Event{}, false
	}
	return Chunk(content), true
}

func (d *Decoder) finishWhole() []Event {
	body := strings.TrimSpace(d.buf.String())
	d.buf.Reset()

	if !gjson.Valid(body) {
		return []Event{Failed(ErrInvalidFormat)}
	}
	if msg, ok := errorMessage(body); ok {
		return []Event{Failed(&UpstreamError{Message: msg})}
	}
	if content, ok := messageContent(body); ok && content != "" {
		return []Event{Chunk(content)}
	}
	return nil
}

// stringField reads an optional string at path. ok is false when the path
// is absent or holds something other than a string.
func stringField(raw, path string) (string, bool) {
	r := gjson.Get(raw, path)
	if r.Type != gjson.String {
		return "", false
	}
	return r.Str, true
}

func deltaContent(raw string) (string, bool) {
	return stringField(raw, "choices.0.delta.content")
}

func messageContent(raw string) (string, bool) {
	return stringField(raw, "choices.0.message.content")
}

// errorMessage reports an error object in a whole body, preferring
// error.message and falling back to the error value itself.
func errorMessage(raw string) (string, bool) {
	e := gjson.Get(raw, "error")
	if !e.Exists() || e.Type == gjson.Null || e.Type == gjson.False {
		return "", false
	}
	if e.Type == gjson.String && e.Str == "" {
		return "", false
	}
	if msg, ok := stringField(raw, "error.message"); ok && msg != "" {
		return msg, true
	}
	if e.Type == gjson.String {
		return e.Str, true
	}
	return e.Raw, true
}
