package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/arin/wordpeek/internal/ai"
)

// Indicator is anything that can be shown while waiting for output.
type Indicator interface {
	Start()
	Stop()
}

// RenderOptions controls how a session is drawn.
type RenderOptions struct {
	// Prefix is written before the first chunk, e.g. "  " for indentation.
	Prefix string
	// Verbose shows the assembled prompt and its token estimate.
	Verbose bool
	// Diag receives the prompt and error output. Defaults to the main writer.
	Diag io.Writer
	// Waiting runs from the start until the first chunk or terminal event.
	Waiting Indicator
}

// Result is what a rendered session produced.
type Result struct {
	Text         string
	Prompt       string
	PromptTokens int
	Chunks       int
	// FirstChunk is measured from the start of rendering.
	FirstChunk time.Duration
	Err        error
}

// Failed reports whether the session ended with an error.
func (r Result) Failed() bool { return r.Err != nil }

// RenderEvents consumes a session's events in order and writes chunks to w
// as they arrive. It returns once the channel closes.
func RenderEvents(w io.Writer, ch <-chan ai.Event, opts RenderOptions) Result {
	diag := opts.Diag
	if diag == nil {
		diag = w
	}

	waiting := opts.Waiting
	if waiting != nil {
		waiting.Start()
	}
	stopWaiting := func() {
		if waiting != nil {
			waiting.Stop()
			waiting = nil
		}
	}
	defer stopWaiting()

	var res Result
	var full strings.Builder
	start := time.Now()

	for ev := range ch {
		switch ev.Kind {
		case ai.KindDebugPrompt:
			res.Prompt = ev.Text
			res.PromptTokens = ai.EstimateTokens(ev.Text)
			if opts.Verbose {
				stopWaiting()
				dim := color.New(color.Faint)
				dim.Fprintf(diag, "prompt (~%d tokens):\n", res.PromptTokens)
				dim.Fprintln(diag, ev.Text)
				fmt.Fprintln(diag)
			}
		case ai.KindChunk:
			if res.Chunks == 0 {
				stopWaiting()
				res.FirstChunk = time.Since(start)
				fmt.Fprint(w, opts.Prefix)
			}
			res.Chunks++
			fmt.Fprint(w, ev.Text)
			full.WriteString(ev.Text)
		case ai.KindError:
			stopWaiting()
			if full.Len() > 0 {
				fmt.Fprintln(w)
			}
			res.Err = ev.Err
			color.New(color.FgRed).Fprintf(diag, "Error: %s\n", ev.Message())
		case ai.KindDone:
			stopWaiting()
		}
	}

	if full.Len() > 0 && res.Err == nil {
		if !strings.HasSuffix(full.String(), "\n") {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}

	res.Text = strings.TrimSpace(full.String())
	return res
}
