package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arin/wordpeek/internal/ai"
	"github.com/arin/wordpeek/internal/config"
	"github.com/arin/wordpeek/internal/logging"
)

// --- Helpers ---

func startServer(t *testing.T, lookup LookupFunc) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(NewServer(lookup, logging.Discard()).Handler())
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http") + LookupPath
}

// collect drains a session's events with a timeout.
func collect(t *testing.T, sess *Session) []ai.Event {
	t.Helper()
	var events []ai.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-sess.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out waiting for session events")
		}
	}
}

// blockingLookup emits a debug prompt and one chunk, then waits for
// cancellation and reports it.
func blockingLookup(cancelled chan<- struct{}) LookupFunc {
	return func(ctx context.Context, req ai.LookupRequest, emit func(ai.Event)) ai.Summary {
		emit(ai.DebugPrompt("p"))
		emit(ai.Chunk("first"))
		select {
		case <-ctx.Done():
			close(cancelled)
		case <-time.After(5 * time.Second):
		}
		return ai.Summary{}
	}
}

// --- Tests ---

func TestSession_RoundTrip(t *testing.T) {
	var mu sync.Mutex
	var got ai.LookupRequest
	_, url := startServer(t, func(ctx context.Context, req ai.LookupRequest, emit func(ai.Event)) ai.Summary {
		mu.Lock()
		got = req
		mu.Unlock()
		emit(ai.DebugPrompt("explain bank"))
		emit(ai.Chunk("a "))
		emit(ai.Chunk("shore"))
		emit(ai.Done())
		return ai.Summary{}
	})

	surface := NewSurface(url)
	defer surface.Close()
	sess, err := surface.Start(context.Background(), ai.LookupRequest{Word: " bank ", Context: "river bank"})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	events := collect(t, sess)

	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %+v", events)
	}
	if events[0].Kind != ai.KindDebugPrompt || events[0].Text != "explain bank" {
		t.Errorf("unexpected first event %+v", events[0])
	}
	if events[1].Text+events[2].Text != "a shore" {
		t.Errorf("unexpected chunks %+v", events[1:3])
	}
	if events[3].Kind != ai.KindDone {
		t.Errorf("expected Done last, got %+v", events[3])
	}

	mu.Lock()
	defer mu.Unlock()
	if got.Word != "bank" || got.Context != "river bank" {
		t.Errorf("server saw %+v", got)
	}
}

func TestSession_ErrorIsTerminal(t *testing.T) {
	_, url := startServer(t, func(ctx context.Context, req ai.LookupRequest, emit func(ai.Event)) ai.Summary {
		emit(ai.Failed(errors.New("HTTP 500: upstream down")))
		return ai.Summary{}
	})

	sess, err := NewSurface(url).Start(context.Background(), ai.LookupRequest{Word: "x"})
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, sess)
	if len(events) != 1 || events[0].Kind != ai.KindError {
		t.Fatalf("expected a single error, got %+v", events)
	}
	if events[0].Message() != "HTTP 500: upstream down" {
		t.Errorf("unexpected message %q", events[0].Message())
	}
}

func TestSession_ThroughRealClient(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, tok := range []string{"Hi", " there"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", tok)
			w.(http.Flusher).Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer upstream.Close()

	client := ai.NewClient(ai.StaticSettings(config.Settings{
		APIURL:       upstream.URL,
		APIKey:       "sk-test",
		Model:        "m",
		SystemPrompt: "%word%",
	}))
	_, url := startServer(t, client.Lookup)

	sess, err := NewSurface(url).Start(context.Background(), ai.LookupRequest{Word: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	var text strings.Builder
	var last ai.Event
	for _, ev := range collect(t, sess) {
		if ev.Kind == ai.KindChunk {
			text.WriteString(ev.Text)
		}
		last = ev
	}
	if text.String() != "Hi there" {
		t.Errorf("expected 'Hi there', got %q", text.String())
	}
	if last.Kind != ai.KindDone {
		t.Errorf("expected Done last, got %+v", last)
	}
}

func TestSession_CloseCancelsLookup(t *testing.T) {
	cancelled := make(chan struct{})
	_, url := startServer(t, blockingLookup(cancelled))

	sess, err := NewSurface(url).Start(context.Background(), ai.LookupRequest{Word: "x"})
	if err != nil {
		t.Fatal(err)
	}
	for ev := range sess.Events() {
		if ev.Kind == ai.KindChunk {
			break
		}
	}
	sess.Close()

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("closing the channel did not cancel the lookup")
	}
	for ev := range sess.Events() {
		if ev.Terminal() {
			t.Errorf("no terminal event expected after local close, got %+v", ev)
		}
	}
}

func TestSurface_StartReplacesPriorSession(t *testing.T) {
	cancelled := make(chan struct{})
	calls := 0
	var mu sync.Mutex
	_, url := startServer(t, func(ctx context.Context, req ai.LookupRequest, emit func(ai.Event)) ai.Summary {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			return blockingLookup(cancelled)(ctx, req, emit)
		}
		emit(ai.Chunk("second"))
		emit(ai.Done())
		return ai.Summary{}
	})

	surface := NewSurface(url)
	defer surface.Close()

	first, err := surface.Start(context.Background(), ai.LookupRequest{Word: "one"})
	if err != nil {
		t.Fatal(err)
	}
	<-first.Events() // debug prompt: the first session is live

	second, err := surface.Start(context.Background(), ai.LookupRequest{Word: "two"})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("starting a new lookup did not cancel the previous one")
	}

	events := collect(t, second)
	if len(events) != 2 || events[0].Text != "second" || events[1].Kind != ai.KindDone {
		t.Errorf("unexpected second session events %+v", events)
	}
}

func TestSession_RemoteDropSurfacesError(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.ReadMessage()
		conn.WriteJSON(Message{Type: TypeChunk, Content: "partial"})
		conn.Close()
	}))
	defer srv.Close()

	sess, err := NewSurface("ws"+strings.TrimPrefix(srv.URL, "http")).Start(context.Background(), ai.LookupRequest{Word: "x"})
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, sess)
	if len(events) != 2 {
		t.Fatalf("expected chunk then error, got %+v", events)
	}
	if !errors.Is(events[1].Err, ErrConnectionLost) {
		t.Errorf("expected ErrConnectionLost, got %v", events[1].Err)
	}
}

func TestServer_RejectsBadFirstMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  string
	}{
		{"wrong type", `{"type":"PING"}`},
		{"missing data", `{"type":"START_LOOKUP"}`},
		{"not json", `hello`},
		{"empty word", `{"type":"START_LOOKUP","data":{"word":"  ","context":""}}`},
		{"too long", `{"type":"START_LOOKUP","data":{"word":"` + strings.Repeat("w", 101) + `"}}`},
	}

	var calls int
	var mu sync.Mutex
	_, url := startServer(t, func(ctx context.Context, req ai.LookupRequest, emit func(ai.Event)) ai.Summary {
		mu.Lock()
		calls++
		mu.Unlock()
		return ai.Summary{}
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				t.Fatal(err)
			}
			defer conn.Close()

			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.msg)); err != nil {
				t.Fatal(err)
			}
			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			_, data, err := conn.ReadMessage()
			if err != nil {
				t.Fatalf("expected an error message, got %v", err)
			}
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatal(err)
			}
			if msg.Type != TypeError || msg.Error == "" {
				t.Errorf("expected ERROR message, got %+v", msg)
			}
		})
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("lookup should not run for rejected requests, ran %d times", calls)
	}
}

func TestMessage_WireFormat(t *testing.T) {
	tests := []struct {
		ev   ai.Event
		want string
	}{
		{ai.DebugPrompt("p"), `{"type":"DEBUG_PROMPT","prompt":"p"}`},
		{ai.Chunk("c"), `{"type":"CHUNK","content":"c"}`},
		{ai.Failed(errors.New("bad")), `{"type":"ERROR","error":"bad"}`},
		{ai.Done(), `{"type":"DONE"}`},
	}
	for _, tt := range tests {
		data, err := json.Marshal(messageFor(tt.ev))
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != tt.want {
			t.Errorf("got %s, want %s", data, tt.want)
		}
	}

	data, _ := json.Marshal(StartLookup(ai.LookupRequest{Word: "w", Context: "c"}))
	if string(data) != `{"type":"START_LOOKUP","data":{"word":"w","context":"c"}}` {
		t.Errorf("unexpected request frame %s", data)
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		origin, host string
		want         bool
	}{
		{"", "127.0.0.1:7878", true},
		{"chrome-extension://abcdef", "127.0.0.1:7878", true},
		{"moz-extension://1234", "127.0.0.1:7878", true},
		{"http://localhost:3000", "127.0.0.1:7878", true},
		{"https://evil.example", "127.0.0.1:7878", false},
		{"http://127.0.0.1:7878", "127.0.0.1:7878", true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/lookup", nil)
		r.Host = tt.host
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := checkOrigin(r); got != tt.want {
			t.Errorf("checkOrigin(%q): got %v, want %v", tt.origin, got, tt.want)
		}
	}
}
