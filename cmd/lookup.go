package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/wordpeek/internal/ai"
	"github.com/arin/wordpeek/internal/config"
	"github.com/arin/wordpeek/internal/history"
	"github.com/arin/wordpeek/internal/logging"
	"github.com/arin/wordpeek/internal/selection"
	"github.com/arin/wordpeek/internal/stats"
	"github.com/arin/wordpeek/internal/transport"
	"github.com/arin/wordpeek/internal/ui"
)

// maxStdinBytes bounds how much piped text is read as context.
const maxStdinBytes = 1 << 20

func runLookup(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("please provide a word to look up\n\nUsage: wordpeek <word> [--context text]\nExample: wordpeek bank --context \"the river bank\"")
	}

	word, err := selection.Validate(strings.Join(args, " "))
	if err != nil {
		return err
	}

	store := config.Store{}
	cfg, err := store.Get()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	req := ai.LookupRequest{Word: word, Context: contextText}
	if req.Context == "" {
		text, err := surroundingText()
		if err != nil {
			return err
		}
		req.Context = selection.Extract(text, word, cfg.ContextRange, cfg.ContextLength)
	}

	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(os.Stderr, "\n  %s\n\n", word)

	opts := ui.RenderOptions{
		Prefix:  "  ",
		Verbose: verbose,
		Diag:    os.Stderr,
		Waiting: ui.NewSpinner(os.Stderr, "Looking up..."),
	}

	var res ui.Result
	var rec stats.Record
	if serverURL != "" {
		res, rec, err = lookupRemote(cmd.Context(), serverURL, req, opts)
		if err != nil {
			return err
		}
	} else {
		res, rec = lookupLocal(cmd.Context(), store, cfg, req, opts)
	}

	// An interrupted lookup has no terminal event and is not recorded.
	if cmd.Context().Err() != nil && !res.Failed() {
		fmt.Fprintln(os.Stderr)
		return fmt.Errorf("lookup cancelled")
	}

	entry := history.Entry{
		Word:    word,
		Context: req.Context,
		Output:  res.Text,
		Mode:    rec.Mode,
		Success: !res.Failed(),
	}
	if res.Failed() {
		entry.Error = res.Err.Error()
	}
	_ = history.Save(entry)
	_ = stats.Save(rec)

	if res.Failed() {
		return ErrReported
	}
	return nil
}

// lookupLocal runs the session in-process.
func lookupLocal(ctx context.Context, store config.Store, cfg config.Settings, req ai.LookupRequest, opts ui.RenderOptions) (ui.Result, stats.Record) {
	var clientOpts []ai.Option
	if verbose {
		level := cfg.LogLevel
		if level == "" || level == "info" {
			level = "debug"
		}
		clientOpts = append(clientOpts, ai.WithLogger(logging.New(level, os.Stderr)))
	}
	client := ai.NewClient(store, clientOpts...)

	events, done := client.Stream(ctx, req)
	res := ui.RenderEvents(os.Stdout, events, opts)
	return res, stats.FromSummary(req.Word, <-done, res.PromptTokens)
}

// lookupRemote runs the session through a daemon.
func lookupRemote(ctx context.Context, url string, req ai.LookupRequest, opts ui.RenderOptions) (ui.Result, stats.Record, error) {
	start := time.Now()
	surface := transport.NewSurface(url)
	defer surface.Close()

	sess, err := surface.Start(ctx, req)
	if err != nil {
		return ui.Result{}, stats.Record{}, fmt.Errorf("%w\n\nIs the daemon running? Start it with: wordpeek serve", err)
	}

	// Closing the session on interrupt abandons the lookup on the daemon.
	stop := context.AfterFunc(ctx, func() { sess.Close() })
	defer stop()

	res := ui.RenderEvents(os.Stdout, sess.Events(), opts)
	rec := stats.Record{
		Word:         req.Word,
		Source:       stats.SourceDaemon,
		FirstChunkMs: res.FirstChunk.Milliseconds(),
		ElapsedMs:    time.Since(start).Milliseconds(),
		PromptTokens: res.PromptTokens,
		Chunks:       res.Chunks,
		Success:      !res.Failed(),
	}
	return res, rec, nil
}

// surroundingText returns the raw text from --context-file or piped stdin.
// It is narrowed down around the word before being sent.
func surroundingText() (string, error) {
	if contextFile != "" {
		data, err := os.ReadFile(contextFile)
		if err != nil {
			return "", fmt.Errorf("failed to read context file: %w", err)
		}
		return string(data), nil
	}
	return readStdin(), nil
}

func readStdin() string {
	info, err := os.Stdin.Stat()
	if err != nil {
		return ""
	}
	if (info.Mode() & os.ModeCharDevice) != 0 {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(os.Stdin, maxStdinBytes))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
