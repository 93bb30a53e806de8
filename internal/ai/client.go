package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/arin/wordpeek/internal/config"
	"github.com/arin/wordpeek/internal/logging"
)

const readBufferSize = 4096

// Client runs lookups. It holds no per-session state, so one Client can
// serve any number of sequential or concurrent sessions.
type Client struct {
	settings   SettingsProvider
	httpClient *http.Client
	log        logrus.FieldLogger
	probe      int
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. Timeouts are whatever
// the client is configured with.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithLogger sets the logger used for debug traces.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.log = l }
}

// WithProbeThreshold overrides the decoder's mode-detection threshold.
func WithProbeThreshold(n int) Option {
	return func(c *Client) { c.probe = n }
}

// NewClient creates a client that reads settings from p on every lookup.
func NewClient(p SettingsProvider, opts ...Option) *Client {
	c := &Client{
		settings:   p,
		httpClient: &http.Client{},
		log:        logging.Discard(),
		probe:      DefaultProbeThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Summary describes how a session went, for history and stats.
type Summary struct {
	Mode       Mode
	StatusCode int
	Chunks     int
	Skipped    int
	FirstChunk time.Duration
	Elapsed    time.Duration
	Err        error
}

// emitter enforces the event ordering rules for one session: nothing after
// the terminal event, and nothing once the context is cancelled.
type emitter struct {
	ctx      context.Context
	emit     func(Event)
	terminal bool
	summary  *Summary
	start    time.Time
}

func (e *emitter) send(ev Event) bool {
	if e.terminal || e.ctx.Err() != nil {
		return false
	}
	switch ev.Kind {
	case KindChunk:
		if e.summary.Chunks == 0 {
			e.summary.FirstChunk = time.Since(e.start)
		}
		e.summary.Chunks++
	case KindError:
		e.summary.Err = ev.Err
	}
	if ev.Terminal() {
		e.terminal = true
	}
	e.emit(ev)
	return true
}

// Lookup loads a fresh settings snapshot and runs the session.
func (c *Client) Lookup(ctx context.Context, req LookupRequest, emit func(Event)) Summary {
	s, err := c.settings.Get()
	if err != nil {
		em := &emitter{ctx: ctx, emit: emit, summary: &Summary{}, start: time.Now()}
		em.send(Failed(fmt.Errorf("failed to load settings: %w", err)))
		return *em.summary
	}
	return c.Run(ctx, req, s, emit)
}

// Run drives one lookup from request to terminal event, calling emit for
// every event in order. Cancelling ctx abandons the upstream request and
// suppresses any further events.
func (c *Client) Run(ctx context.Context, req LookupRequest, s config.Settings, emit func(Event)) (summary Summary) {
	em := &emitter{ctx: ctx, emit: emit, summary: &summary, start: time.Now()}
	defer func() { summary.Elapsed = time.Since(em.start) }()

	log := c.log.WithFields(logrus.Fields{"word": req.Word, "model": s.Model})

	if strings.TrimSpace(s.APIKey) == "" {
		em.send(Failed(ErrMissingAPIKey))
		return summary
	}

	prompt := BuildPrompt(s.SystemPrompt, req.Word, req.Context)
	em.send(DebugPrompt(prompt))

	resp, err := c.post(ctx, s, prompt)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Debug("upstream request failed")
		}
		em.send(Failed(err))
		return summary
	}
	defer resp.Body.Close()

	summary.StatusCode = resp.StatusCode
	log.WithField("status", resp.StatusCode).Debug("upstream responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			em.send(Failed(&TransportError{Err: err}))
			return summary
		}
		em.send(Failed(&HTTPError{StatusCode: resp.StatusCode, Body: string(body)}))
		return summary
	}

	dec := NewDecoderWithProbe(c.probe)
	defer func() {
		summary.Mode = dec.Mode()
		summary.Skipped = dec.Skipped()
		log.WithFields(logrus.Fields{
			"mode":    dec.Mode(),
			"chunks":  summary.Chunks,
			"skipped": dec.Skipped(),
		}).Debug("session finished")
	}()

	var text utf8Stream
	buf := make([]byte, readBufferSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			for _, ev := range dec.Feed(text.decode(buf[:n])) {
				em.send(ev)
			}
		}
		if ctx.Err() != nil {
			return summary
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			em.send(Failed(&TransportError{Err: rerr}))
			return summary
		}
	}

	for _, ev := range dec.Feed(text.flush()) {
		em.send(ev)
	}
	for _, ev := range dec.Finish() {
		em.send(ev)
	}
	em.send(Done())
	return summary
}

func (c *Client) post(ctx context.Context, s config.Settings, prompt string) (*http.Response, error) {
	payload := openai.ChatCompletionRequest{
		Model: s.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stream: true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return resp, nil
}
