package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/arin/wordpeek/internal/ai"
	"github.com/arin/wordpeek/internal/selection"
)

const (
	// LookupPath is where UI surfaces open a session.
	LookupPath = "/lookup"

	defaultStartTimeout = 10 * time.Second
	writeWait           = 10 * time.Second
	closeGrace          = time.Second
)

var errChannelClosed = errors.New("channel closed before lookup finished")

// LookupFunc runs one session and calls emit for each event in order.
// ai.Client.Lookup satisfies it.
type LookupFunc func(ctx context.Context, req ai.LookupRequest, emit func(ai.Event)) ai.Summary

// Server accepts lookup sessions over websockets.
type Server struct {
	lookup       LookupFunc
	log          logrus.FieldLogger
	upgrader     websocket.Upgrader
	startTimeout time.Duration
}

// NewServer creates a server that runs lookup for every session.
func NewServer(lookup LookupFunc, log logrus.FieldLogger) *Server {
	return &Server{
		lookup:       lookup,
		log:          log,
		startTimeout: defaultStartTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Handler returns the HTTP routes served by the daemon.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(LookupPath, s.serveLookup)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	return mux
}

// checkOrigin admits same-host pages, browser extensions and local tools.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "chrome-extension", "moz-extension", "safari-web-extension":
		return true
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return u.Host == r.Host
}

func (s *Server) serveLookup(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := s.log.WithField("session", uuid.NewString())

	req, err := s.readStart(conn)
	if err != nil {
		log.WithError(err).Warn("rejected lookup request")
		s.finish(conn, ai.Failed(err))
		return
	}
	log = log.WithField("word", req.Word)
	log.Info("lookup started")

	g, ctx := errgroup.WithContext(r.Context())
	runDone := make(chan struct{})

	// The UI only ever sends one message, so reading here just watches for
	// the channel going away.
	g.Go(func() error {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				select {
				case <-runDone:
					return nil
				default:
					return errChannelClosed
				}
			}
		}
	})

	g.Go(func() error {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		var writeErr error
		summary := s.lookup(runCtx, req, func(ev ai.Event) {
			if writeErr != nil {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(messageFor(ev)); err != nil {
				writeErr = err
				cancel()
			}
		})
		close(runDone)
		if writeErr != nil {
			return fmt.Errorf("failed to write event: %w", writeErr)
		}
		if ctx.Err() != nil {
			return nil
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		conn.SetReadDeadline(time.Now().Add(closeGrace))

		entry := log.WithFields(logrus.Fields{
			"mode":    summary.Mode,
			"chunks":  summary.Chunks,
			"elapsed": summary.Elapsed.Round(time.Millisecond),
		})
		if summary.Err != nil {
			entry.WithError(summary.Err).Warn("lookup failed")
		} else {
			entry.Info("lookup finished")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Info("lookup abandoned")
	}
}

// readStart waits for the single START_LOOKUP message.
func (s *Server) readStart(conn *websocket.Conn) (ai.LookupRequest, error) {
	conn.SetReadDeadline(time.Now().Add(s.startTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, data, err := conn.ReadMessage()
	if err != nil {
		return ai.LookupRequest{}, fmt.Errorf("failed to read request: %w", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return ai.LookupRequest{}, fmt.Errorf("invalid message: %w", err)
	}
	if msg.Type != TypeStartLookup || msg.Data == nil {
		return ai.LookupRequest{}, fmt.Errorf("expected %s, got %q", TypeStartLookup, msg.Type)
	}
	word, err := selection.Validate(msg.Data.Word)
	if err != nil {
		return ai.LookupRequest{}, err
	}
	return ai.LookupRequest{Word: word, Context: msg.Data.Context}, nil
}

// finish sends a terminal event and closes the channel normally.
func (s *Server) finish(conn *websocket.Conn, ev ai.Event) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(messageFor(ev)); err != nil {
		return
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}
