// Package transport carries lookup sessions between a UI surface and the
// background process over a websocket. Each connection is one session: the
// UI sends a single START_LOOKUP message and then only receives events.
package transport

import (
	"errors"

	"github.com/arin/wordpeek/internal/ai"
)

// Message types on the wire.
const (
	TypeStartLookup = "START_LOOKUP"
	TypeDebugPrompt = "DEBUG_PROMPT"
	TypeChunk       = "CHUNK"
	TypeError       = "ERROR"
	TypeDone        = "DONE"
)

// Message is the JSON frame exchanged in both directions.
type Message struct {
	Type    string            `json:"type"`
	Data    *ai.LookupRequest `json:"data,omitempty"`
	Prompt  string            `json:"prompt,omitempty"`
	Content string            `json:"content,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// StartLookup builds the single request message a UI sends.
func StartLookup(req ai.LookupRequest) Message {
	return Message{Type: TypeStartLookup, Data: &req}
}

func messageFor(ev ai.Event) Message {
	switch ev.Kind {
	case ai.KindDebugPrompt:
		return Message{Type: TypeDebugPrompt, Prompt: ev.Text}
	case ai.KindChunk:
		return Message{Type: TypeChunk, Content: ev.Text}
	case ai.KindError:
		return Message{Type: TypeError, Error: ev.Message()}
	default:
		return Message{Type: TypeDone}
	}
}

// Event converts a response message back into an event. ok is false for
// message types a UI does not expect.
func (m Message) Event() (ai.Event, bool) {
	switch m.Type {
	case TypeDebugPrompt:
		return ai.DebugPrompt(m.Prompt), true
	case TypeChunk:
		return ai.Chunk(m.Content), true
	case TypeError:
		return ai.Failed(errors.New(m.Error)), true
	case TypeDone:
		return ai.Done(), true
	}
	return ai.Event{}, false
}
