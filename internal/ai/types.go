// Package ai runs word lookups against an OpenAI-compatible chat endpoint
// and turns the streamed response into a normalized event sequence.
package ai

import "fmt"

// LookupRequest is one user selection: the word and the text around it.
type LookupRequest struct {
	Word    string `json:"word"`
	Context string `json:"context"`
}

// Kind tags an Event.
type Kind int

const (
	KindDebugPrompt Kind = iota + 1
	KindChunk
	KindError
	KindDone
)

func (k Kind) String() string {
	switch k {
	case KindDebugPrompt:
		return "debug_prompt"
	case KindChunk:
		return "chunk"
	case KindError:
		return "error"
	case KindDone:
		return "done"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is the only contract between a lookup and whatever renders it.
// A session emits at most one DebugPrompt before any Chunk, any number of
// Chunks in arrival order, and exactly one terminal event (Done or Error).
type Event struct {
	Kind Kind
	// Text is the prompt for DebugPrompt and the delta for Chunk.
	Text string
	// Err is set for KindError.
	Err error
}

// DebugPrompt returns an event carrying the prompt that was sent upstream.
func DebugPrompt(prompt string) Event { return Event{Kind: KindDebugPrompt, Text: prompt} }

// Chunk returns an event carrying one text delta.
func Chunk(text string) Event { return Event{Kind: KindChunk, Text: text} }

// Failed returns a terminal error event.
func Failed(err error) Event { return Event{Kind: KindError, Err: err} }

// Done returns the terminal success event.
func Done() Event { return Event{Kind: KindDone} }

// Terminal reports whether no event may follow e.
func (e Event) Terminal() bool {
	return e.Kind == KindError || e.Kind == KindDone
}

// Message returns the error text for an error event.
func (e Event) Message() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}
